package state

import (
	"context"

	"github.com/google/uuid"
)

// JobQueue enqueues background work triggered by reducer applications.
// Implemented by the Redis job queue service; the delta worker treats
// enqueue failures as lost jobs, never as a failed turn.
type JobQueue interface {
	// EnqueueSummaryRefresh schedules a story-summary rebuild for a game.
	EnqueueSummaryRefresh(ctx context.Context, gameStateID uuid.UUID) error

	// EnqueueIllustration schedules image generation for a story segment.
	EnqueueIllustration(ctx context.Context, gameStateID uuid.UUID, segment int, prompt string) error
}
