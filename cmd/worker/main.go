package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sagaforge/saga-engine/internal/config"
	"github.com/sagaforge/saga-engine/internal/logger"
	"github.com/sagaforge/saga-engine/internal/services"
	"github.com/sagaforge/saga-engine/internal/services/events"
	"github.com/sagaforge/saga-engine/internal/services/queue"
	"github.com/sagaforge/saga-engine/internal/storage"
	"github.com/sagaforge/saga-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Saga Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"concurrency", cfg.WorkerConcurrency)

	if cfg.OracleAPIKey == "" {
		log.Error("ORACLE_API_KEY is required")
		os.Exit(1)
	}
	oracle := services.NewOpenAIOracle(cfg.OracleAPIKey, cfg.OracleBaseURL, cfg.OracleModel, cfg.OracleTemp, log)

	var illustrator services.Illustrator = services.NoopIllustrator{}
	if cfg.ImageAPIKey != "" {
		illustrator = services.NewOpenAIIllustrator(cfg.ImageAPIKey, cfg.ImageModel, log)
		log.Info("Illustration backend enabled", "model", cfg.ImageModel)
	}

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
	processor := worker.NewProcessor(store, oracle, illustrator, broadcaster, log)

	concurrency := cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	workers := make([]*worker.Worker, 0, concurrency)
	for i := 0; i < concurrency; i++ {
		w := worker.New(jobQueue, processor, redisClient, log, fmt.Sprintf("worker-%d", i))
		workers = append(workers, w)
		go func() {
			if err := w.Start(); err != nil {
				log.Error("Worker error", "error", err)
			}
		}()
	}
	log.Info("Workers started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Worker shutdown signal received")

	for _, w := range workers {
		w.Stop()
	}

	// Give in-flight jobs a moment to finish.
	time.Sleep(2 * time.Second)

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	log.Info("Worker exited")
}
