// Package worker drains the background job queue: summary refreshes
// and story illustrations.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sagaforge/saga-engine/internal/services/queue"
)

const (
	dequeueTimeout = 5 * time.Second
	lockTTL        = 30 * time.Second
)

// Worker pulls jobs off the queue one at a time. Run several for
// concurrency; a per-game lock keeps two workers off the same game.
type Worker struct {
	id          string
	queue       *queue.Client
	processor   *Processor
	redisClient *redis.Client
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

func New(q *queue.Client, processor *Processor, redisClient *redis.Client, logger *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.NewString()[:8])
	}
	return &Worker{
		id:          workerID,
		queue:       q,
		processor:   processor,
		redisClient: redisClient,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start processes jobs until Stop is called.
func (w *Worker) Start() error {
	w.logger.Info("Worker starting", "worker_id", w.id)
	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNext(); err != nil {
				w.logger.Error("Error processing job", "error", err, "worker_id", w.id)
				time.Sleep(time.Second)
			}
		}
	}
}

// Stop requests a graceful shutdown.
func (w *Worker) Stop() {
	w.logger.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

func (w *Worker) processNext() error {
	ctx, cancel := context.WithTimeout(w.ctx, dequeueTimeout+time.Second)
	defer cancel()

	job, err := w.queue.BlockingDequeue(ctx, dequeueTimeout)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to dequeue: %w", err)
	}
	if job == nil {
		// Timeout with an empty queue.
		return nil
	}

	locked, err := w.acquireGameLock(job.GameStateID)
	if err != nil {
		return fmt.Errorf("failed to acquire game lock: %w", err)
	}
	if !locked {
		// Another worker holds this game. Re-queue and move on.
		w.logger.Debug("Game locked, re-queueing job",
			"worker_id", w.id,
			"job_id", job.ID,
			"game_id", job.GameStateID.String())
		return w.queue.Enqueue(w.ctx, job)
	}
	defer w.releaseGameLock(job.GameStateID)

	start := time.Now()
	if err := w.processor.Process(w.ctx, job); err != nil {
		return fmt.Errorf("job %s failed: %w", job.ID, err)
	}
	w.logger.Info("Job processed",
		"worker_id", w.id,
		"job_id", job.ID,
		"type", job.Type,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) acquireGameLock(gameID uuid.UUID) (bool, error) {
	key := fmt.Sprintf("game-lock:%s", gameID.String())
	return w.redisClient.SetNX(w.ctx, key, w.id, lockTTL).Result()
}

func (w *Worker) releaseGameLock(gameID uuid.UUID) {
	key := fmt.Sprintf("game-lock:%s", gameID.String())

	// Delete only if this worker still owns the lock.
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	if err := script.Run(context.Background(), w.redisClient, []string{key}, w.id).Err(); err != nil {
		w.logger.Error("Failed to release game lock", "error", err, "game_id", gameID.String())
	}
}
