// Package queue is the Redis-backed background job queue shared by the
// api and worker binaries.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType discriminates background work.
type JobType string

const (
	JobSummaryRefresh JobType = "summary_refresh"
	JobIllustration   JobType = "illustration"
)

// Job is one unit of background work.
type Job struct {
	ID          string    `json:"id"`
	Type        JobType   `json:"type"`
	GameStateID uuid.UUID `json:"game_state_id"`
	Segment     int       `json:"segment,omitempty"` // illustration target, by total-segment index
	Prompt      string    `json:"prompt,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// NewJob creates a job with a fresh id.
func NewJob(jobType JobType, gameStateID uuid.UUID) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		GameStateID: gameStateID,
		EnqueuedAt:  time.Now(),
	}
}

// ToJSON serializes the job for the wire.
func (j *Job) ToJSON() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return data, nil
}

// FromJSON parses a job off the wire.
func FromJSON(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &j, nil
}
