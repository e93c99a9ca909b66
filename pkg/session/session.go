// Package session models shared multiplayer sessions and the turn
// ownership discipline that guards their game state.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sagaforge/saga-engine/pkg/state"
)

// Status is the session lifecycle discriminator.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusSetup    Status = "setup"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

var (
	// ErrNotYourTurn rejects an action from anyone but the acting player.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrNotHost rejects a host-only operation from a guest.
	ErrNotHost = errors.New("host privileges required")

	// ErrNotJoinable rejects joins once play has started.
	ErrNotJoinable = errors.New("session is not accepting players")
)

// Player is one roster entry.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Host  bool   `json:"host"`
	Ready bool   `json:"ready"`
}

// Session is a shared adventure: an ordered roster and one game state
// guarded by a monotonically increasing turn index.
type Session struct {
	ID        uuid.UUID        `json:"id"`
	HostID    string           `json:"host_id"`
	Players   []Player         `json:"players"`
	Status    Status           `json:"status"`
	TurnIndex int              `json:"turn_index"`
	Game      *state.GameState `json:"game,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// New creates a waiting session owned by the host.
func New(host Player) *Session {
	host.Host = true
	return &Session{
		ID:        uuid.New(),
		HostID:    host.ID,
		Players:   []Player{host},
		Status:    StatusWaiting,
		Game:      state.NewGameState(host.ID),
		CreatedAt: time.Now(),
	}
}

// DeepCopy returns an independent copy via a JSON round-trip.
func (s *Session) DeepCopy() (*Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	var cp Session
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session copy: %w", err)
	}
	return &cp, nil
}

// Join appends a player to the roster. Idempotent by player id: a
// rejoining player keeps their roster position.
func (s *Session) Join(p Player) error {
	if s.Status != StatusWaiting && s.Status != StatusSetup {
		return ErrNotJoinable
	}
	for i := range s.Players {
		if s.Players[i].ID == p.ID {
			s.Players[i].Name = p.Name
			return nil
		}
	}
	p.Host = false
	s.Players = append(s.Players, p)
	return nil
}

// SetReady flags a roster entry as ready.
func (s *Session) SetReady(playerID string, ready bool) error {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			s.Players[i].Ready = ready
			return nil
		}
	}
	return fmt.Errorf("player %s not in session", playerID)
}

// Advance moves the session lifecycle forward. Host only.
func (s *Session) Advance(callerID string, to Status) error {
	if callerID != s.HostID {
		return ErrNotHost
	}
	legal := map[Status]Status{
		StatusWaiting: StatusSetup,
		StatusSetup:   StatusPlaying,
		StatusPlaying: StatusFinished,
	}
	if legal[s.Status] != to {
		return fmt.Errorf("illegal session transition %s -> %s", s.Status, to)
	}
	s.Status = to
	return nil
}

// CurrentPlayer is the roster entry whose action may mutate state.
// Zero Player on an empty roster, which only corrupted storage can
// produce.
func (s *Session) CurrentPlayer() Player {
	if len(s.Players) == 0 {
		return Player{}
	}
	return s.Players[s.TurnIndex%len(s.Players)]
}

// ValidateTurn accepts or rejects an actor without mutating anything.
func (s *Session) ValidateTurn(playerID string) error {
	if len(s.Players) == 0 || s.CurrentPlayer().ID != playerID {
		return ErrNotYourTurn
	}
	return nil
}

// BeginTurn validates ownership and advances the turn index. The index
// moves before the oracle round-trip and is never rolled back: a failed
// turn passes the rotation on rather than reopening it to the same
// player, and a duplicate submission is already stale by the time it is
// evaluated.
func (s *Session) BeginTurn(playerID string) error {
	if err := s.ValidateTurn(playerID); err != nil {
		return err
	}
	s.TurnIndex++
	return nil
}
