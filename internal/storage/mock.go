package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sagaforge/saga-engine/pkg/session"
	"github.com/sagaforge/saga-engine/pkg/state"
)

// MockStorage is an in-memory Storage for tests. Behavior can be
// overridden per method via the function fields.
type MockStorage struct {
	mu sync.Mutex

	gameStates map[uuid.UUID]*state.GameState
	sessions   map[uuid.UUID]*session.Session

	SaveGameStateFunc func(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameStateFunc func(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	PingFunc          func(ctx context.Context) error

	SaveCalls   int
	LoadCalls   int
	DeleteCalls int
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates an empty in-memory storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		gameStates: make(map[uuid.UUID]*state.GameState),
		sessions:   make(map[uuid.UUID]*session.Session),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockStorage) Close() error { return nil }

func (m *MockStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveGameStateFunc != nil {
		return m.SaveGameStateFunc(ctx, id, gs)
	}
	cp, err := gs.DeepCopy()
	if err != nil {
		return err
	}
	m.gameStates[id] = cp
	return nil
}

func (m *MockStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	if m.LoadGameStateFunc != nil {
		return m.LoadGameStateFunc(ctx, id)
	}
	gs, ok := m.gameStates[id]
	if !ok {
		return nil, nil
	}
	return gs.DeepCopy()
}

func (m *MockStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	delete(m.gameStates, id)
	return nil
}

func (m *MockStorage) ListGameStates(ctx context.Context, ownerID string) ([]SaveSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var summaries []SaveSummary
	for _, gs := range m.gameStates {
		if gs.OwnerID != ownerID {
			continue
		}
		summary := SaveSummary{
			ID:            gs.ID,
			Status:        gs.Status,
			TotalSegments: gs.TotalSegments,
			UpdatedAt:     gs.UpdatedAt,
		}
		if gs.Character != nil {
			summary.CharacterName = gs.Character.Name
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (m *MockStorage) SaveSession(ctx context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, err := s.DeepCopy()
	if err != nil {
		return err
	}
	m.sessions[s.ID] = cp
	return nil
}

func (m *MockStorage) LoadSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.DeepCopy()
}

func (m *MockStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
