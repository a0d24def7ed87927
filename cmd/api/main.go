package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillbase-io/skillbase/internal/api"
	"github.com/skillbase-io/skillbase/internal/cache"
	"github.com/skillbase-io/skillbase/internal/config"
	"github.com/skillbase-io/skillbase/internal/database"
	"github.com/skillbase-io/skillbase/internal/embedding"
	"github.com/skillbase-io/skillbase/internal/jobqueue"
	"github.com/skillbase-io/skillbase/internal/skill"
	"github.com/skillbase-io/skillbase/internal/vectorstore"
	"github.com/skillbase-io/skillbase/internal/worker"
	"github.com/skillbase-io/skillbase/pkg/textextract"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	// Redis is optional; without it queue stats are just uncached.
	var rdb *redis.Client
	if client, err := cache.NewClient(ctx, cfg.Redis); err != nil {
		slog.Warn("redis unavailable, running without cache", "error", err)
	} else {
		rdb = client
		defer rdb.Close()
	}

	router := api.NewRouter(db, rdb, cfg)
	handler, err := router.Setup()
	if err != nil {
		slog.Error("failed to set up router", "error", err)
		os.Exit(1)
	}

	// In-process ingestion worker. Deployments that want a separate worker
	// process run cmd/worker instead and share the same jobs table.
	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		slog.Error("failed to build embedder", "error", err)
		os.Exit(1)
	}
	store := vectorstore.NewPgVectorStore(db)
	proc := worker.NewProcessor(
		jobqueue.New(db),
		textextract.FileExtractor{},
		embedder,
		store,
		skill.NewService(db, store),
		worker.Options{
			PollInterval: cfg.Worker.PollInterval,
			ChunkSize:    cfg.Worker.ChunkSize,
			ChunkOverlap: cfg.Worker.ChunkOverlap,
		},
	)
	proc.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")
	proc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
