package state

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGameState(t *testing.T) {
	gs := NewGameState("owner-1")
	assert.Equal(t, ModeCharacterCreation, gs.Status)
	assert.Equal(t, "owner-1", gs.OwnerID)
	assert.NotNil(t, gs.Map)
	assert.NoError(t, gs.Validate())
}

func TestGameState_DeepCopy(t *testing.T) {
	gs := newPlayingState()
	gs.Companions = []Companion{{Name: "Wren", Relationship: 10}}
	gs.Map.AddLocation(Location{Name: "Greywatch"})

	cp, err := gs.DeepCopy()
	require.NoError(t, err)

	cp.Character.HP = 1
	cp.Companions[0].Relationship = -50
	cp.Map.MarkVisited("Greywatch")

	assert.Equal(t, 30, gs.Character.HP)
	assert.Equal(t, 10, gs.Companions[0].Relationship)
	assert.False(t, gs.Map.Locations["Greywatch"].Visited)
}

func TestAppendStory_EvictionAndCadence(t *testing.T) {
	gs := NewGameState("o")
	for i := 1; i <= StoryLogLimit+5; i++ {
		due := gs.AppendStory(StorySegment{Kind: SegmentStory, Text: fmt.Sprintf("s%d", i)})
		assert.Equal(t, i%SummaryInterval == 0, due, "segment %d", i)
	}
	assert.Len(t, gs.StoryLog, StoryLogLimit)
	assert.Equal(t, StoryLogLimit+5, gs.TotalSegments, "counter survives eviction")
	assert.Equal(t, "s6", gs.StoryLog[0].Text)

	// Cadence is driven by the total count, so eviction does not shift it.
	due := gs.AppendStory(StorySegment{Kind: SegmentStory, Text: "s106"})
	assert.False(t, due)
	for i := 107; i <= 110; i++ {
		due = gs.AppendStory(StorySegment{Kind: SegmentStory, Text: fmt.Sprintf("s%d", i)})
	}
	assert.True(t, due)
}

func TestRecentStory(t *testing.T) {
	gs := NewGameState("o")
	for i := 0; i < 5; i++ {
		gs.AppendStory(StorySegment{Text: fmt.Sprintf("s%d", i)})
	}
	recent := gs.RecentStory(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "s3", recent[0].Text)
	assert.Len(t, gs.RecentStory(50), 5)
	assert.Len(t, gs.RecentStory(0), 5)
}

func TestTransition(t *testing.T) {
	gs := newPlayingState()
	gs.Status = ModeCombat
	gs.Combat = &CombatState{}

	require.NoError(t, gs.Transition(ModePlaying))
	assert.Nil(t, gs.Combat, "sub-state cleared on transition")

	err := gs.Transition(ModeLooting)
	assert.Error(t, err, "playing -> looting is not a legal edge")
	assert.Equal(t, ModePlaying, gs.Status)
}

func TestModeMachine(t *testing.T) {
	tests := []struct {
		from, to Mode
		ok       bool
	}{
		{ModeInitialLoad, ModeCharacterCreation, true},
		{ModeCharacterCreation, ModeCharacterCustomize, true},
		{ModeCharacterCustomize, ModePlaying, true},
		{ModeCharacterCreation, ModePlaying, false},
		{ModePlaying, ModeCombat, true},
		{ModePlaying, ModeTransaction, true},
		{ModePlaying, ModeGambling, true},
		{ModePlaying, ModeLevelUp, true},
		{ModePlaying, ModeGameOver, true},
		{ModePlaying, ModeLooting, false},
		{ModeCombat, ModeLooting, true},
		{ModeCombat, ModeGameOver, true},
		{ModeCombat, ModePlaying, true},
		{ModeCombat, ModeTransaction, false},
		{ModeLooting, ModePlaying, true},
		{ModeTransaction, ModePlaying, true},
		{ModeGambling, ModePlaying, true},
		{ModeLevelUp, ModePlaying, true},
		{ModeGameOver, ModePlaying, false},
		{ModeGameOver, ModeCharacterCreation, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to))
		})
	}
}

func TestModeTerminal(t *testing.T) {
	assert.True(t, ModeGameOver.IsTerminal())
	assert.False(t, ModePlaying.IsTerminal())
	assert.False(t, Mode("bogus").IsTerminal())
	assert.False(t, Mode("bogus").Valid())
	assert.True(t, ModeCombat.Valid())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GameState)
		wantErr bool
	}{
		{"clean playing state", func(gs *GameState) {}, false},
		{"unknown mode", func(gs *GameState) { gs.Status = "limbo" }, true},
		{"combat state outside combat", func(gs *GameState) { gs.Combat = &CombatState{} }, true},
		{"loot state outside looting", func(gs *GameState) { gs.Loot = &LootState{} }, true},
		{"transaction state outside transaction", func(gs *GameState) { gs.Transaction = &TransactionState{} }, true},
		{"hp above max", func(gs *GameState) { gs.Character.HP = 99 }, true},
		{"negative hp", func(gs *GameState) { gs.Character.HP = -1 }, true},
		{"negative gold", func(gs *GameState) { gs.Character.Gold = -1 }, true},
		{"combat mode with combat state", func(gs *GameState) {
			gs.Status = ModeCombat
			gs.Combat = &CombatState{}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newPlayingState()
			tt.mutate(gs)
			err := gs.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFindCompanion(t *testing.T) {
	gs := NewGameState("o")
	gs.Companions = []Companion{{Name: "Wren"}}
	require.NotNil(t, gs.FindCompanion("Wren"))
	assert.Nil(t, gs.FindCompanion("Nobody"))

	gs.FindCompanion("Wren").Relationship = 7
	assert.Equal(t, 7, gs.Companions[0].Relationship, "returns a pointer into the slice")
}
