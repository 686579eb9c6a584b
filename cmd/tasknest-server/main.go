package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/existflow/tasknest/internal/app"
	"github.com/existflow/tasknest/internal/config"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := app.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to start", logger.F("error", err))
		log.Fatalf("Failed to start: %v", err)
	}

	srv := server.New(a.Tasks, a.Ledger, server.WithTokenHash(cfg.APITokenHash))
	if cfg.APITokenHash == "" {
		logger.Warn("No api_token_hash configured, the API is open to anyone who can reach it")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("TaskNest server starting on %s", cfg.Addr)
		errCh <- srv.Start(cfg.Addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", logger.F("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", logger.F("error", err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		logger.Error("Error closing app", logger.F("error", err))
	}
	logger.Info("Server stopped")
}
