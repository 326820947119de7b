// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"growth-engine/config"
	"growth-engine/internal/app"
	"growth-engine/internal/server"
	"growth-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalw("Failed to load config", "error", err)
	}

	var l *logger.Logger
	if cfg.Log.Development {
		l = logger.NewDevelopment()
	} else {
		l = logger.New(cfg.Log.Level)
		gin.SetMode(gin.ReleaseMode)
	}
	defer l.Sync()

	l.Infow("Starting growth engine...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, l)
	if err != nil {
		l.Fatalw("Failed to initialize", "error", err)
	}
	defer a.Close()

	httpServer := server.NewServer(cfg.Server.Port, a.Router, l)
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		l.Errorw("HTTP server failed", "error", err)
		a.Close()
		os.Exit(1)
	}

	l.Infow("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during HTTP server shutdown", "error", err)
	}

	l.Infow("Server stopped successfully")
}
