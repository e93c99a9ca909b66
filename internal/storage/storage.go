// Package storage persists game states and multiplayer sessions.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sagaforge/saga-engine/pkg/session"
	"github.com/sagaforge/saga-engine/pkg/state"
)

// SaveSummary is one entry in a player's save list.
type SaveSummary struct {
	ID            uuid.UUID  `json:"id"`
	CharacterName string     `json:"character_name,omitempty"`
	Status        state.Mode `json:"status"`
	TotalSegments int        `json:"total_segments"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Storage defines the persistence interface for the engine.
// Load methods return (nil, nil) when the key does not exist.
type Storage interface {
	Ping(ctx context.Context) error
	Close() error

	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error
	ListGameStates(ctx context.Context, ownerID string) ([]SaveSummary, error)

	SaveSession(ctx context.Context, s *session.Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}
