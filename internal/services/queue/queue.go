package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sagaforge/saga-engine/pkg/state"
)

// jobsKey is the global work list consumed by the worker pool.
const jobsKey = "jobs"

// Client is the Redis job queue. It implements state.JobQueue for the
// delta worker and exposes the dequeue side for the worker binary.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

var _ state.JobQueue = (*Client)(nil)

// NewClient wraps an existing Redis client for queue operations.
func NewClient(rdb *redis.Client, logger *slog.Logger) *Client {
	return &Client{
		rdb:    rdb,
		logger: logger,
	}
}

// Enqueue pushes a job onto the work list.
func (c *Client) Enqueue(ctx context.Context, job *Job) error {
	data, err := job.ToJSON()
	if err != nil {
		return err
	}
	if err := c.rdb.RPush(ctx, jobsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	c.logger.Debug("Job enqueued", "job_id", job.ID, "type", job.Type, "game_id", job.GameStateID.String())
	return nil
}

// EnqueueSummaryRefresh implements state.JobQueue.
func (c *Client) EnqueueSummaryRefresh(ctx context.Context, gameStateID uuid.UUID) error {
	return c.Enqueue(ctx, NewJob(JobSummaryRefresh, gameStateID))
}

// EnqueueIllustration implements state.JobQueue.
func (c *Client) EnqueueIllustration(ctx context.Context, gameStateID uuid.UUID, segment int, prompt string) error {
	job := NewJob(JobIllustration, gameStateID)
	job.Segment = segment
	job.Prompt = prompt
	return c.Enqueue(ctx, job)
}

// Dequeue pops the next job, nil when the list is empty.
func (c *Client) Dequeue(ctx context.Context) (*Job, error) {
	result, err := c.rdb.LPop(ctx, jobsKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	return FromJSON([]byte(result))
}

// BlockingDequeue blocks until a job is available. A zero timeout waits
// forever.
func (c *Client) BlockingDequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := c.rdb.BLPop(ctx, timeout, jobsKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}
	return FromJSON([]byte(result[1]))
}

// Depth returns the number of queued jobs.
func (c *Client) Depth(ctx context.Context) (int, error) {
	count, err := c.rdb.LLen(ctx, jobsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}
