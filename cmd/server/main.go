package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/nemfeed/internal/config"
	"github.com/JonMunkholm/nemfeed/internal/core"
	"github.com/JonMunkholm/nemfeed/internal/logging"
	"github.com/JonMunkholm/nemfeed/internal/metrics"
	"github.com/JonMunkholm/nemfeed/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"listing_url", cfg.Upstream.ListingURL,
		"upstream_timeout", cfg.Upstream.Timeout,
		"selection", cfg.Upstream.Selection,
		"layout", cfg.Upstream.Layout,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	service := core.NewService(cfg.Upstream, metrics.New())
	server := web.NewServer(service, cfg)

	// Cancelled on shutdown to stop the config watcher
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	if path := os.Getenv(config.FileEnv); path != "" {
		go func() {
			if err := config.Watch(jobCtx, path, service.SetUpstream); err != nil {
				slog.Error("config watcher stopped", "path", path, "error", err)
			}
		}()
	}

	// Graceful shutdown
	go func() {
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
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
