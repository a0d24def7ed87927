package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

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

	slog.Info("starting worker", "poll_interval", cfg.Worker.PollInterval)
	proc.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	proc.Stop()
	slog.Info("worker stopped")
}
