package services

import (
	"context"
	"sync"

	"github.com/sagaforge/saga-engine/pkg/state"
)

// MockOracle is a test double for Oracle. Each method returns a bland
// default unless its function field is set, and records its calls.
type MockOracle struct {
	mu sync.Mutex

	GenerateCharacterFunc func(ctx context.Context, req CharacterRequest) (*CharacterProposal, error)
	NextStepFunc          func(ctx context.Context, req StoryRequest) (*state.StoryDelta, error)
	CombatTurnFunc        func(ctx context.Context, req CombatRequest) (*state.CombatTurnDelta, error)
	VictoryFunc           func(ctx context.Context, req VictoryRequest) (*state.VictoryDelta, error)
	GambleFunc            func(ctx context.Context, req GambleRequest) (*state.GambleDelta, error)
	SummarizeFunc         func(ctx context.Context, req SummaryRequest) (string, error)

	NextStepCalls  []StoryRequest
	CombatCalls    []CombatRequest
	VictoryCalls   []VictoryRequest
	GambleCalls    []GambleRequest
	SummarizeCalls []SummaryRequest
	CharacterCalls []CharacterRequest
}

var _ Oracle = (*MockOracle)(nil)

func (m *MockOracle) GenerateCharacter(ctx context.Context, req CharacterRequest) (*CharacterProposal, error) {
	m.mu.Lock()
	m.CharacterCalls = append(m.CharacterCalls, req)
	m.mu.Unlock()
	if m.GenerateCharacterFunc != nil {
		return m.GenerateCharacterFunc(ctx, req)
	}
	return &CharacterProposal{
		Character: state.Character{
			Name:  "Mock Hero",
			HP:    20,
			MaxHP: 20,
			Gold:  50,
		},
		SkillPools: state.SkillPools{
			"combat":  {{Name: "Swords"}},
			"magic":   {{Name: "Evocation"}},
			"utility": {{Name: "Persuasion"}},
		},
		Opening: "The road stretches ahead.",
		Actions: []string{"Walk on"},
	}, nil
}

func (m *MockOracle) NextStep(ctx context.Context, req StoryRequest) (*state.StoryDelta, error) {
	m.mu.Lock()
	m.NextStepCalls = append(m.NextStepCalls, req)
	m.mu.Unlock()
	if m.NextStepFunc != nil {
		return m.NextStepFunc(ctx, req)
	}
	return &state.StoryDelta{
		Story:   "The story continues.",
		Actions: []string{"Continue"},
	}, nil
}

func (m *MockOracle) CombatTurn(ctx context.Context, req CombatRequest) (*state.CombatTurnDelta, error) {
	m.mu.Lock()
	m.CombatCalls = append(m.CombatCalls, req)
	m.mu.Unlock()
	if m.CombatTurnFunc != nil {
		return m.CombatTurnFunc(ctx, req)
	}
	return &state.CombatTurnDelta{
		Narration: "Blows are exchanged.",
		Attack:    state.AttackMelee,
	}, nil
}

func (m *MockOracle) Victory(ctx context.Context, req VictoryRequest) (*state.VictoryDelta, error) {
	m.mu.Lock()
	m.VictoryCalls = append(m.VictoryCalls, req)
	m.mu.Unlock()
	if m.VictoryFunc != nil {
		return m.VictoryFunc(ctx, req)
	}
	return &state.VictoryDelta{Narration: "Victory.", XP: 25, Gold: 10}, nil
}

func (m *MockOracle) Gamble(ctx context.Context, req GambleRequest) (*state.GambleDelta, error) {
	m.mu.Lock()
	m.GambleCalls = append(m.GambleCalls, req)
	m.mu.Unlock()
	if m.GambleFunc != nil {
		return m.GambleFunc(ctx, req)
	}
	return &state.GambleDelta{Narration: "The dice tumble.", GoldDelta: 0}, nil
}

func (m *MockOracle) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	m.mu.Lock()
	m.SummarizeCalls = append(m.SummarizeCalls, req)
	m.mu.Unlock()
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, req)
	}
	return "A summary of events so far.", nil
}
