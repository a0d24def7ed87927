// Package api wires the HTTP surface: skill management, document uploads,
// job inspection, and knowledge search.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/skillbase-io/skillbase/internal/api/handlers"
	"github.com/skillbase-io/skillbase/internal/api/middleware"
	"github.com/skillbase-io/skillbase/internal/cache"
	"github.com/skillbase-io/skillbase/internal/config"
	"github.com/skillbase-io/skillbase/internal/document"
	"github.com/skillbase-io/skillbase/internal/embedding"
	"github.com/skillbase-io/skillbase/internal/jobqueue"
	"github.com/skillbase-io/skillbase/internal/rag"
	"github.com/skillbase-io/skillbase/internal/skill"
	"github.com/skillbase-io/skillbase/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client // optional
	cfg   *config.Config
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
	}
}

func (rt *Router) Setup() (http.Handler, error) {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Services
	embedder, err := embedding.NewEmbedder(rt.cfg.Embedding)
	if err != nil {
		return nil, err
	}

	store := vectorstore.NewPgVectorStore(rt.db)
	queue := jobqueue.New(rt.db)
	skillSvc := skill.NewService(rt.db, store)
	docSvc := document.NewService(queue, skillSvc, rt.cfg.Storage.UploadsDir)
	retriever := rag.NewRetriever(embedder, store, rag.Options{
		MaxContextChunks: rt.cfg.Search.MaxContextChunks,
		ScoreThreshold:   rt.cfg.Search.ScoreThreshold,
		Metric:           vectorstore.Metric(rt.cfg.Search.Metric),
	})

	var statsCache *cache.Cache
	if rt.redis != nil {
		statsCache = cache.NewCache(rt.redis)
	}

	skillH := handlers.NewSkillHandler(skillSvc)
	docH := handlers.NewDocumentHandler(docSvc, queue, rt.cfg.Storage.MaxFileSizeMB)
	searchH := handlers.NewSearchHandler(retriever)
	queueH := handlers.NewQueueHandler(queue, statsCache)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/skills", func(r chi.Router) {
			r.Get("/", skillH.List)
			r.Post("/", skillH.Create)
			r.Route("/{skillID}", func(r chi.Router) {
				r.Get("/", skillH.Get)
				r.Delete("/", skillH.Delete)
				r.Post("/documents", docH.Upload)
				r.Get("/jobs", docH.ListJobs)
				r.Post("/search", searchH.Search)
			})
		})

		r.Get("/jobs/{jobID}", docH.GetJob)
		r.Get("/queue/stats", queueH.Stats)
	})

	return r, nil
}
