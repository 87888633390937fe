package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/blackmichael/bluesky-longpost/internal/bluesky"
	"github.com/blackmichael/bluesky-longpost/internal/config"
	"github.com/blackmichael/bluesky-longpost/internal/domain"
	"github.com/blackmichael/bluesky-longpost/internal/httpserver"
	"github.com/blackmichael/bluesky-longpost/internal/postgres"
	"github.com/blackmichael/bluesky-longpost/internal/ratelimit"
	"github.com/blackmichael/bluesky-longpost/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer closeRepo()
	logger.Info("connected to database")

	client := bluesky.NewClient(cfg.PDSURL, cfg.AppViewURL)
	limiter := ratelimit.NewSlidingWindow(cfg.RateLimitMax, cfg.RateLimitWindow)
	bounds := domain.ContentBounds{Min: cfg.MinContentLen, Max: cfg.MaxContentLen}

	posts := domain.NewPostService(repo, client, client, limiter, bounds, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	server := httpserver.NewServer(cfg, posts, client, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port)

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}

// openRepository picks the post store from the database URL: postgres URLs
// use PostgreSQL, anything else is a SQLite file path.
func openRepository(ctx context.Context, cfg *config.Config) (domain.PostRepository, func() error, error) {
	if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		repo, err := postgres.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	}

	repo, err := sqlite.NewRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}
