package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/feedparse/app/api"
	"github.com/lysyi3m/feedparse/app/cfg"
	"github.com/lysyi3m/feedparse/app/feed"
	"github.com/lysyi3m/feedparse/app/logger"
)

func main() {
	if _, err := cfg.Load(); err != nil {
		if errors.Is(err, cfg.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	appCfg := cfg.Get()

	logger.Setup(os.Stdout, appCfg.LogFormat, appCfg.Debug)

	slog.Info("Starting feedparse server", "version", appCfg.Version)

	parser := feed.NewParser(feed.WithQueueSize(appCfg.StreamQueueSize))
	apiHandler := api.NewHandler(parser, feed.NewOpmlGenerator(),
		appCfg.MaxBodyBytes, appCfg.MaxEntries, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	// No WriteTimeout: /api/parse/stream responses live as long as the
	// client keeps sending.
	httpServer := &http.Server{
		Addr:              ":" + appCfg.Port,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port,
			"max_body_bytes", appCfg.MaxBodyBytes, "max_entries", appCfg.MaxEntries)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server shutdown complete")
}
