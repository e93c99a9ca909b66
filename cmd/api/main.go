package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sagaforge/saga-engine/internal/config"
	"github.com/sagaforge/saga-engine/internal/engine"
	"github.com/sagaforge/saga-engine/internal/handlers"
	"github.com/sagaforge/saga-engine/internal/logger"
	"github.com/sagaforge/saga-engine/internal/middleware"
	"github.com/sagaforge/saga-engine/internal/realtime"
	"github.com/sagaforge/saga-engine/internal/services"
	"github.com/sagaforge/saga-engine/internal/services/events"
	"github.com/sagaforge/saga-engine/internal/services/queue"
	"github.com/sagaforge/saga-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Saga Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"oracle_model", cfg.OracleModel)

	if cfg.OracleAPIKey == "" {
		log.Error("ORACLE_API_KEY is required")
		os.Exit(1)
	}
	oracle := services.NewOpenAIOracle(cfg.OracleAPIKey, cfg.OracleBaseURL, cfg.OracleModel, cfg.OracleTemp, log)

	store := storage.NewRedisStorage(cfg.RedisURL, time.Duration(cfg.GameStateTTL)*time.Minute, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established")

	redisClient := store.GetClient()
	jobQueue := queue.NewClient(redisClient, log)
	broadcaster := events.NewBroadcaster(redisClient, log)

	eng := engine.New(store, oracle, log).
		WithQueue(jobQueue).
		WithBroadcaster(broadcaster)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, log))

	playHandler := handlers.NewPlayHandler(eng, log)
	gameHandler := handlers.NewGameHandler(eng, playHandler, log)
	mux.Handle("/v1/games", gameHandler)
	mux.Handle("/v1/games/", gameHandler)

	sessionHandler := handlers.NewSessionHandler(eng, log)
	mux.Handle("/v1/sessions", sessionHandler)
	mux.Handle("/v1/sessions/", sessionHandler)

	hub := realtime.NewHub(broadcaster, log)
	mux.Handle("/v1/events/", hub)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket connections stay open indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
