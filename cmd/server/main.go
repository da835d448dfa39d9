package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/catalog"
	"github.com/JonMunkholm/bomquote/internal/config"
	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/logging"
	"github.com/JonMunkholm/bomquote/internal/metrics"
	"github.com/JonMunkholm/bomquote/internal/web"
)

func main() {
	// Load .env file if it exists; real environment variables win
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	m := metrics.New(prometheus.NewRegistry())

	vocab := bom.DefaultVocabulary()
	if cfg.Matching.VocabularyFile != "" {
		vocab, err = bom.LoadVocabulary(cfg.Matching.VocabularyFile)
		if err != nil {
			slog.Error("failed to load vocabulary", "path", cfg.Matching.VocabularyFile, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("vocabulary loaded", "version", vocab.Version())

	ctx := context.Background()

	var src catalog.Source
	var pool *pgxpool.Pool
	if cfg.UsesDatabase() {
		pool, err = connect(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		src = catalog.NewPostgresSource(pool, cfg.Catalog.Table, cfg.Catalog.OrderColumn)
	} else {
		src = catalog.NewFileSource(cfg.Catalog.File)
	}

	catalogs := catalog.NewCache(src, catalog.CacheOptions{
		TTL:         cfg.Catalog.RefreshInterval,
		LoadTimeout: cfg.Catalog.LoadTimeout,
		Vocabulary:  vocab,
		OnLoad:      m.RecordCatalogLoad,
	})

	// Fail fast on a broken catalog instead of on the first upload
	if _, err := catalogs.Refresh(ctx); err != nil {
		slog.Error("failed to load catalog", "source", src.Name(), "error", err)
		os.Exit(1)
	}

	engine := bom.NewEngine(cfg.Matching.Policy(), vocab)
	service := core.NewService(engine, catalogs, m, core.OptionsFromConfig(cfg))
	server := web.NewServer(service, cfg, m)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSessionSweeper(jobCtx)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for uploads still holding a slot
		if status := service.Health().Uploads; status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Warn("uploads did not complete in time", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connect opens the catalog connection pool and verifies it.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
