// Package services holds the engine's external collaborators: the
// narrative oracle, the illustrator, and their mocks.
package services

import (
	"context"

	"github.com/sagaforge/saga-engine/pkg/state"
)

// StoryRequest is one ordinary story step. Modifiers carry the
// rules-computed skill check bonuses so the oracle adjudicates against
// explicit numbers instead of re-deriving stats.
type StoryRequest struct {
	Game       *state.GameState
	ActionText string
	Modifiers  map[string]int // pool name -> check modifier
}

// CombatRequest is one combat round. PlayerContext and EnemyContexts
// are the flattened d20 sheets.
type CombatRequest struct {
	Game          *state.GameState
	ActionText    string
	PlayerContext map[string]int
	EnemyContexts map[string]map[string]int // enemy id -> sheet
	SkillsByName  map[string]int
}

// VictoryRequest asks the oracle to narrate a won encounter and
// propose loot.
type VictoryRequest struct {
	Game *state.GameState
}

// GambleRequest is one wager exchange. Stake is the amount the player
// put down; the oracle's gold delta is clamped by the engine.
type GambleRequest struct {
	Game       *state.GameState
	ActionText string
	Stake      int
}

// CharacterRequest seeds character generation from the player's
// concept text.
type CharacterRequest struct {
	Concept       string
	StoryGuidance string
}

// CharacterProposal is the oracle's generated character plus the
// adventure's skill pools, pending player customization.
type CharacterProposal struct {
	Character  state.Character  `json:"character"`
	SkillPools state.SkillPools `json:"skill_pools"`
	Opening    string           `json:"opening"` // opening narration
	Actions    []string         `json:"actions"`
}

// SummaryRequest rebuilds the rolling story summary. Recent segments
// are weighted over the prior summary.
type SummaryRequest struct {
	PriorSummary   string
	RecentSegments []string
}

// Oracle is the narrative LLM behind every mode. Implementations
// return schema-shaped deltas; the engine treats the numbers inside as
// untrusted and arbitrates every one of them.
type Oracle interface {
	GenerateCharacter(ctx context.Context, req CharacterRequest) (*CharacterProposal, error)
	NextStep(ctx context.Context, req StoryRequest) (*state.StoryDelta, error)
	CombatTurn(ctx context.Context, req CombatRequest) (*state.CombatTurnDelta, error)
	Victory(ctx context.Context, req VictoryRequest) (*state.VictoryDelta, error)
	Gamble(ctx context.Context, req GambleRequest) (*state.GambleDelta, error)
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// Illustrator generates an image for a story segment and returns a
// reference (URL or storage key). Implementations may be disabled and
// return an empty reference.
type Illustrator interface {
	Illustrate(ctx context.Context, prompt string) (string, error)
}
