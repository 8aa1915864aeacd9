// ABOUTME: Main entry point for the Listings Aggregator API server
// ABOUTME: Wires together all components and starts the HTTP server

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listings-aggregator-api/api"
	"listings-aggregator-api/cmd/internal/bootstrap"
	"listings-aggregator-api/infrastructure/logger/structured"
	"listings-aggregator-api/pkg/config"
	"listings-aggregator-api/pkg/featureflags"
	"listings-aggregator-api/pkg/utils/duration"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := structured.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Info("Starting Listings Aggregator API", map[string]interface{}{
		"port":       cfg.Server.Port,
		"store_type": cfg.Store.Type,
		"cache_type": cfg.Cache.Type,
		"sources":    len(cfg.Sources),
		"cache_for":  duration.HumanReadable(cfg.Aggregation.CacheDuration),
	})

	flags := featureflags.NewEnvManager("")

	app, err := bootstrap.Build(context.Background(), cfg, logger, flags)
	if err != nil {
		logger.Error("Failed to initialize services", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer app.Close()

	humaAPI, router := api.NewAPIWithMiddleware(api.APIConfig{
		Logger:    logger.With(map[string]interface{}{"component": "http"}),
		Flags:     flags,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})
	api.RegisterRoutes(humaAPI, app.Service)

	// WriteTimeout covers a full refresh pass triggered by a read
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Aggregation.RefreshDeadline + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", map[string]interface{}{
				"error": err.Error(),
			})
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Info("Server stopped", nil)
}

func init() {
	fmt.Println(`
    __    _      __  _                 
   / /   (_)____/ /_(_)___  ____ ______
  / /   / / ___/ __/ / __ \/ __ '/ ___/
 / /___/ (__  ) /_/ / / / / /_/ (__  ) 
/_____/_/____/\__/_/_/ /_/\__, /____/  
                         /____/        
	`)
}
