package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StoryLogLimit caps the number of retained story segments to bound the
// persisted document size. Oldest segments are evicted first.
const StoryLogLimit = 100

// SummaryInterval is the number of total segments between background
// summary refreshes.
const SummaryInterval = 10

// SegmentKind distinguishes narrated story text from system notices.
type SegmentKind string

const (
	SegmentStory SegmentKind = "story"
	SegmentInfo  SegmentKind = "info"
)

// SkillCheckResult records the outcome of an oracle-adjudicated skill
// check. The engine supplies the modifier; the oracle asserts the result.
type SkillCheckResult struct {
	Skill    string `json:"skill"`
	Modifier int    `json:"modifier"`
	Success  bool   `json:"success"`
}

// StorySegment is one narrated entry in the story log.
type StorySegment struct {
	Kind         SegmentKind       `json:"kind"`
	Text         string            `json:"text"`
	Illustration string            `json:"illustration,omitempty"` // image ref, empty when none
	SkillCheck   *SkillCheckResult `json:"skill_check,omitempty"`
}

// LootState holds a victory payload while the loot screen is open.
type LootState struct {
	Narration string `json:"narration,omitempty"`
	XP        int    `json:"xp"`
	Gold      int    `json:"gold"`
	Items     []Item `json:"items,omitempty"`
}

// TransactionState holds the active vendor while trading.
type TransactionState struct {
	VendorName        string `json:"vendor_name"`
	VendorDescription string `json:"vendor_description,omitempty"`
	Offers            []Item `json:"offers,omitempty"`
}

// GameState is the aggregate root for one adventure. All mutation goes
// through the delta worker, combat resolver, and engine operations; a
// reducer application produces a complete new state or none at all.
type GameState struct {
	ID            uuid.UUID         `json:"id"`
	OwnerID       string            `json:"owner_id,omitempty"`
	Status        Mode              `json:"status"`
	Character     *Character        `json:"character,omitempty"`
	Companions    []Companion       `json:"companions,omitempty"`
	StoryLog      []StorySegment    `json:"story_log,omitempty"`
	TotalSegments int               `json:"total_segments"` // monotone count, survives log eviction
	Actions       []string          `json:"actions,omitempty"`
	StoryGuidance string            `json:"story_guidance,omitempty"` // set once at creation
	SkillPools    SkillPools        `json:"skill_pools,omitempty"`    // fixed at creation
	Weather       string            `json:"weather,omitempty"`
	TimeOfDay     string            `json:"time_of_day,omitempty"`
	Combat        *CombatState      `json:"combat,omitempty"`
	Loot          *LootState        `json:"loot,omitempty"`
	Transaction   *TransactionState `json:"transaction,omitempty"`
	Map           *WorldMap         `json:"map,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewGameState starts a fresh adventure in character creation.
func NewGameState(ownerID string) *GameState {
	return &GameState{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Status:    ModeCharacterCreation,
		Map:       NewWorldMap(),
		CreatedAt: time.Now(),
	}
}

// DeepCopy returns an independent copy via a JSON round-trip.
func (gs *GameState) DeepCopy() (*GameState, error) {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game state: %w", err)
	}
	var cp GameState
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game state copy: %w", err)
	}
	return &cp, nil
}

// AppendStory adds a segment to the log, evicting the oldest entries past
// StoryLogLimit. Returns true when the total segment count has crossed a
// SummaryInterval boundary and a summary refresh is due.
func (gs *GameState) AppendStory(seg StorySegment) bool {
	gs.StoryLog = append(gs.StoryLog, seg)
	gs.TotalSegments++
	if len(gs.StoryLog) > StoryLogLimit {
		gs.StoryLog = gs.StoryLog[len(gs.StoryLog)-StoryLogLimit:]
	}
	return gs.TotalSegments%SummaryInterval == 0
}

// RecentStory returns up to n most recent segments, oldest first.
func (gs *GameState) RecentStory(n int) []StorySegment {
	if n <= 0 || n >= len(gs.StoryLog) {
		return gs.StoryLog
	}
	return gs.StoryLog[len(gs.StoryLog)-n:]
}

// clearSubStates drops all mode-specific sub-state.
func (gs *GameState) clearSubStates() {
	gs.Combat = nil
	gs.Loot = nil
	gs.Transaction = nil
}

// setMode clears stale sub-state and switches mode. Callers are expected
// to have checked CanTransition and to populate the new mode's sub-state
// afterwards.
func (gs *GameState) setMode(to Mode) {
	gs.clearSubStates()
	gs.Status = to
}

// Transition validates and performs a mode change.
func (gs *GameState) Transition(to Mode) error {
	if !CanTransition(gs.Status, to) {
		return fmt.Errorf("illegal mode transition %s -> %s", gs.Status, to)
	}
	gs.setMode(to)
	return nil
}

// Validate checks the structural invariants that every persisted state
// must satisfy.
func (gs *GameState) Validate() error {
	if !gs.Status.Valid() {
		return fmt.Errorf("unknown mode %q", gs.Status)
	}
	if len(gs.StoryLog) > StoryLogLimit {
		return fmt.Errorf("story log exceeds limit: %d", len(gs.StoryLog))
	}
	active := 0
	if gs.Combat != nil {
		if gs.Status != ModeCombat {
			return fmt.Errorf("combat state present in mode %s", gs.Status)
		}
		active++
	}
	if gs.Loot != nil {
		if gs.Status != ModeLooting {
			return fmt.Errorf("loot state present in mode %s", gs.Status)
		}
		active++
	}
	if gs.Transaction != nil {
		if gs.Status != ModeTransaction {
			return fmt.Errorf("transaction state present in mode %s", gs.Status)
		}
		active++
	}
	if active > 1 {
		return fmt.Errorf("%d mode sub-states active at once", active)
	}
	if gs.Character != nil {
		if gs.Character.HP < 0 || gs.Character.HP > gs.Character.MaxHP {
			return fmt.Errorf("character hp %d outside [0, %d]", gs.Character.HP, gs.Character.MaxHP)
		}
		if gs.Character.Gold < 0 {
			return fmt.Errorf("character gold is negative: %d", gs.Character.Gold)
		}
	}
	return nil
}

// FindCompanion returns a pointer into the companions slice, nil if the
// name is unknown.
func (gs *GameState) FindCompanion(name string) *Companion {
	for i := range gs.Companions {
		if gs.Companions[i].Name == name {
			return &gs.Companions[i]
		}
	}
	return nil
}
