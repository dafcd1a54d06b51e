package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourname/fastingtracker/internal"
	"github.com/yourname/fastingtracker/internal/api"
	"github.com/yourname/fastingtracker/internal/auth"
	"github.com/yourname/fastingtracker/internal/config"
	"github.com/yourname/fastingtracker/internal/plan"
	"github.com/yourname/fastingtracker/internal/service"
	"github.com/yourname/fastingtracker/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := internal.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Backend, cfg.DSN, cfg.SessionsFile, cfg.ProfileFile, logger)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}

	loc := cfg.Location()
	catalog := plan.NewCatalog()
	lifecycle := service.NewLifecycle(store, catalog, loc, cfg.TrackCancelled, logger)
	analytics := service.NewAnalytics(store, loc, cfg.TrackCancelled)
	app := api.NewApp(logger, store, catalog, lifecycle, analytics, loc)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.RequestIDMiddleware())

	provider := auth.NewStaticTokenProvider(cfg.AuthToken, logger)
	api.RegisterRoutes(r, app, auth.Middleware(provider))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Infof("server running on :%s (storage=%s, zone=%s)", cfg.Port, cfg.Backend, loc)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if err := store.Close(); err != nil {
		logger.Errorf("storage close: %v", err)
	}
}
