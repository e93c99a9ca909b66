package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagaforge/saga-engine/internal/services"
	"github.com/sagaforge/saga-engine/internal/storage"
	"github.com/sagaforge/saga-engine/pkg/rules"
	"github.com/sagaforge/saga-engine/pkg/session"
	"github.com/sagaforge/saga-engine/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine() (*Engine, *storage.MockStorage, *services.MockOracle) {
	store := storage.NewMockStorage()
	oracle := &services.MockOracle{}
	return New(store, oracle, testLogger()), store, oracle
}

// seedPlayingGame persists a game already in playing mode.
func seedPlayingGame(t *testing.T, store *storage.MockStorage) *state.GameState {
	t.Helper()
	gs := state.NewGameState("owner-1")
	gs.Status = state.ModePlaying
	gs.StoryGuidance = "A frontier kingdom."
	gs.Character = &state.Character{
		Name:  "Brennan",
		HP:    30,
		MaxHP: 30,
		Gold:  100,
		Stats: rules.Stats{Strength: 16, Dexterity: 10, Constitution: 12, Intelligence: 10, Wisdom: 10, Charisma: 14},
		Skills: map[string]int{
			"Swords": 5,
		},
	}
	gs.SkillPools = state.SkillPools{
		rules.PoolCombat:  {{Name: "Swords"}},
		rules.PoolMagic:   {{Name: "Evocation"}},
		rules.PoolUtility: {{Name: "Persuasion"}},
	}
	require.NoError(t, store.SaveGameState(context.Background(), gs.ID, gs))
	return gs
}

func TestCreationFlow(t *testing.T) {
	e, _, oracle := newTestEngine()
	ctx := context.Background()

	gs, err := e.NewGame(ctx, "owner-1", "A frontier kingdom.")
	require.NoError(t, err)
	assert.Equal(t, state.ModeCharacterCreation, gs.Status)

	gs, err = e.CreateCharacter(ctx, gs.ID, "a wandering swordsman")
	require.NoError(t, err)
	assert.Equal(t, state.ModeCharacterCustomize, gs.Status)
	require.NotNil(t, gs.Character)
	assert.NotEmpty(t, gs.SkillPools)
	require.Len(t, oracle.CharacterCalls, 1)
	assert.Equal(t, "a wandering swordsman", oracle.CharacterCalls[0].Concept)

	gs, err = e.FinalizeCharacter(ctx, gs.ID, FinalizeRequest{Name: "Brennan", Skills: []string{"Swords"}})
	require.NoError(t, err)
	assert.Equal(t, state.ModePlaying, gs.Status)
	assert.Equal(t, "Brennan", gs.Character.Name)
	assert.Equal(t, 1, gs.Character.Skills["Swords"])
}

func TestCreateCharacter_WrongMode(t *testing.T) {
	e, store, _ := newTestEngine()
	gs := seedPlayingGame(t, store)

	_, err := e.CreateCharacter(context.Background(), gs.ID, "concept")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestFinalizeCharacter_UnknownSkill(t *testing.T) {
	e, _, _ := newTestEngine()
	ctx := context.Background()

	gs, err := e.NewGame(ctx, "owner-1", "guidance")
	require.NoError(t, err)
	gs, err = e.CreateCharacter(ctx, gs.ID, "concept")
	require.NoError(t, err)

	_, err = e.FinalizeCharacter(ctx, gs.ID, FinalizeRequest{Skills: []string{"Juggling"}})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestSubmitAction(t *testing.T) {
	e, store, oracle := newTestEngine()
	gs := seedPlayingGame(t, store)
	ctx := context.Background()

	oracle.NextStepFunc = func(ctx context.Context, req services.StoryRequest) (*state.StoryDelta, error) {
		// Modifiers are computed by the engine, not the oracle.
		expected := rules.StatBonus(16) + rules.StatBonus(12)
		assert.Equal(t, expected, req.Modifiers["combat"])
		return &state.StoryDelta{Story: "You press on.", XPDelta: 40, Actions: []string{"Camp"}}, nil
	}

	next, err := e.SubmitAction(ctx, gs.ID, "head north")
	require.NoError(t, err)
	assert.Equal(t, 40, next.Character.XP)
	require.Len(t, next.StoryLog, 1)

	// The stored copy matches the returned state.
	stored, err := store.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, stored.Character.XP)
}

func TestSubmitAction_OracleFailureLeavesStateUnchanged(t *testing.T) {
	e, store, oracle := newTestEngine()
	gs := seedPlayingGame(t, store)
	ctx := context.Background()

	oracle.NextStepFunc = func(ctx context.Context, req services.StoryRequest) (*state.StoryDelta, error) {
		return nil, fmt.Errorf("%w: timeout", services.ErrOracleUnavailable)
	}

	_, err := e.SubmitAction(ctx, gs.ID, "head north")
	assert.ErrorIs(t, err, ErrOracleUnavailable)

	stored, err := store.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.StoryLog)
	assert.Equal(t, 0, stored.Character.XP)
}

func TestSubmitAction_TerminalState(t *testing.T) {
	e, store, _ := newTestEngine()
	gs := seedPlayingGame(t, store)
	gs.Status = state.ModeGameOver
	require.NoError(t, store.SaveGameState(context.Background(), gs.ID, gs))

	_, err := e.SubmitAction(context.Background(), gs.ID, "rise from the grave")
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestSubmitCombatAction_VictoryFlow(t *testing.T) {
	e, store, oracle := newTestEngine()
	gs := seedPlayingGame(t, store)
	gs.Status = state.ModeCombat
	gs.Combat = state.NewCombatState([]state.EnemySpec{{Name: "Bandit", HP: 5}})
	ctx := context.Background()
	require.NoError(t, store.SaveGameState(ctx, gs.ID, gs))

	oracle.CombatTurnFunc = func(ctx context.Context, req services.CombatRequest) (*state.CombatTurnDelta, error) {
		assert.Contains(t, req.EnemyContexts, "bandit-0")
		return &state.CombatTurnDelta{Narration: "You strike.", Skill: "Swords", TargetID: "bandit-0"}, nil
	}
	oracle.VictoryFunc = func(ctx context.Context, req services.VictoryRequest) (*state.VictoryDelta, error) {
		return &state.VictoryDelta{Narration: "The bandit falls.", XP: 120, Gold: 15}, nil
	}

	next, err := e.SubmitCombatAction(ctx, gs.ID, "attack the bandit")
	require.NoError(t, err)
	assert.Equal(t, state.ModeLooting, next.Status)
	require.NotNil(t, next.Loot)
	assert.Equal(t, 15, next.Loot.Gold)
	assert.Equal(t, 120, next.Character.XP)
	assert.Equal(t, 1, next.Character.SkillPoints)

	next, err = e.ContinueFromLoot(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ModePlaying, next.Status)
	assert.Nil(t, next.Loot)
}

func TestSubmitCombatAction_VictoryOracleFailureAbandonsTurn(t *testing.T) {
	e, store, oracle := newTestEngine()
	gs := seedPlayingGame(t, store)
	gs.Status = state.ModeCombat
	gs.Combat = state.NewCombatState([]state.EnemySpec{{Name: "Bandit", HP: 5}})
	ctx := context.Background()
	require.NoError(t, store.SaveGameState(ctx, gs.ID, gs))

	oracle.CombatTurnFunc = func(ctx context.Context, req services.CombatRequest) (*state.CombatTurnDelta, error) {
		return &state.CombatTurnDelta{Narration: "You strike.", TargetID: "bandit-0"}, nil
	}
	oracle.VictoryFunc = func(ctx context.Context, req services.VictoryRequest) (*state.VictoryDelta, error) {
		return nil, fmt.Errorf("%w: timeout", services.ErrOracleUnavailable)
	}

	_, err := e.SubmitCombatAction(ctx, gs.ID, "attack")
	assert.ErrorIs(t, err, ErrOracleUnavailable)

	stored, err := store.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ModeCombat, stored.Status)
	assert.Equal(t, 5, stored.Combat.Enemies[0].HP, "whole round abandoned, not half applied")
}

func TestLevelUpFlow(t *testing.T) {
	e, store, _ := newTestEngine()
	gs := seedPlayingGame(t, store)
	gs.Character.SkillPoints = 3
	ctx := context.Background()
	require.NoError(t, store.SaveGameState(ctx, gs.ID, gs))

	next, err := e.EnterLevelUp(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ModeLevelUp, next.Status)

	next, err = e.ConfirmLevelUp(ctx, gs.ID, map[string]int{"Swords": 2, "Persuasion": 1})
	require.NoError(t, err)
	assert.Equal(t, state.ModePlaying, next.Status)
	assert.Equal(t, 7, next.Character.Skills["Swords"])
	assert.Equal(t, 1, next.Character.Skills["Persuasion"])
	assert.Equal(t, 0, next.Character.SkillPoints)
}

func TestLevelUp_Overspend(t *testing.T) {
	e, store, _ := newTestEngine()
	gs := seedPlayingGame(t, store)
	gs.Character.SkillPoints = 1
	ctx := context.Background()
	require.NoError(t, store.SaveGameState(ctx, gs.ID, gs))

	_, err := e.EnterLevelUp(ctx, gs.ID)
	require.NoError(t, err)

	_, err = e.ConfirmLevelUp(ctx, gs.ID, map[string]int{"Swords": 2})
	assert.ErrorIs(t, err, ErrInsufficientSkillPoints)

	next, err := e.CancelLevelUp(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ModePlaying, next.Status)
	assert.Equal(t, 1, next.Character.SkillPoints, "cancel spends nothing")
}

func TestEnterLevelUp_NoPoints(t *testing.T) {
	e, store, _ := newTestEngine()
	gs := seedPlayingGame(t, store)

	_, err := e.EnterLevelUp(context.Background(), gs.ID)
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestGambleFlow(t *testing.T) {
	e, store, oracle := newTestEngine()
	gs := seedPlayingGame(t, store)
	ctx := context.Background()

	_, err := e.EnterGambling(ctx, gs.ID)
	require.NoError(t, err)

	// A loss larger than the stake is clamped to the stake.
	oracle.GambleFunc = func(ctx context.Context, req services.GambleRequest) (*state.GambleDelta, error) {
		assert.Equal(t, 20, req.Stake)
		return &state.GambleDelta{Narration: "You lose badly.", GoldDelta: -500}, nil
	}
	next, err := e.SubmitGamble(ctx, gs.ID, "bet on the dice", 20)
	require.NoError(t, err)
	assert.Equal(t, 80, next.Character.Gold)
	assert.Equal(t, state.ModeGambling, next.Status)

	_, err = e.SubmitGamble(ctx, gs.ID, "bet everything", 500)
	assert.ErrorIs(t, err, ErrInsufficientGold)

	next, err = e.ExitGambling(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ModePlaying, next.Status)
}

func TestTransactionPricing(t *testing.T) {
	e, store, _ := newTestEngine()
	gs := seedPlayingGame(t, store) // CHA 14
	gs.Status = state.ModeTransaction
	gs.Transaction = &state.TransactionState{
		VendorName: "Oskar",
		Offers:     []state.Item{{Name: "Lantern", Value: 100}},
	}
	ctx := context.Background()
	require.NoError(t, store.SaveGameState(ctx, gs.ID, gs))

	// CHA 14: buy at 88, sell at 62.
	next, err := e.PerformTransaction(ctx, gs.ID, TransactionRequest{Kind: TransactionBuy, ItemName: "Lantern"})
	require.NoError(t, err)
	assert.Equal(t, 12, next.Character.Gold)
	assert.Empty(t, next.Transaction.Offers)
	require.Len(t, next.Character.Equipment.Gear, 1)

	next, err = e.PerformTransaction(ctx, gs.ID, TransactionRequest{Kind: TransactionSell, ItemName: "Lantern"})
	require.NoError(t, err)
	assert.Equal(t, 74, next.Character.Gold)
	assert.Empty(t, next.Character.Equipment.Gear)

	next, err = e.ExitTransaction(ctx, gs.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ModePlaying, next.Status)
	assert.Nil(t, next.Transaction)
}

func TestTransaction_InsufficientGold(t *testing.T) {
	e, store, _ := newTestEngine()
	gs := seedPlayingGame(t, store)
	gs.Status = state.ModeTransaction
	gs.Character.Gold = 10
	gs.Transaction = &state.TransactionState{
		VendorName: "Oskar",
		Offers:     []state.Item{{Name: "Lantern", Value: 100}},
	}
	ctx := context.Background()
	require.NoError(t, store.SaveGameState(ctx, gs.ID, gs))

	_, err := e.PerformTransaction(ctx, gs.ID, TransactionRequest{Kind: TransactionBuy, ItemName: "Lantern"})
	assert.ErrorIs(t, err, ErrInsufficientGold)
}

func TestLiquidateGear(t *testing.T) {
	e, store, _ := newTestEngine()
	gs := seedPlayingGame(t, store)
	gs.Character.AddGear(state.Item{Name: "Wolf Pelt", Value: 25})
	ctx := context.Background()
	require.NoError(t, store.SaveGameState(ctx, gs.ID, gs))

	// Flat half value, charisma does not apply.
	next, err := e.LiquidateGear(ctx, gs.ID, "Wolf Pelt")
	require.NoError(t, err)
	assert.Equal(t, 112, next.Character.Gold)
	assert.Empty(t, next.Character.Equipment.Gear)
}

func TestSessionFlow(t *testing.T) {
	e, store, oracle := newTestEngine()
	ctx := context.Background()

	s, err := e.CreateSession(ctx, session.Player{ID: "host", Name: "Hal"}, "A shared saga.")
	require.NoError(t, err)

	s, err = e.JoinSession(ctx, s.ID, session.Player{ID: "p2", Name: "Bea"})
	require.NoError(t, err)
	require.Len(t, s.Players, 2)

	// The shared game must reach playing mode before turns are accepted.
	s.Game.Status = state.ModePlaying
	s.Game.Character = &state.Character{Name: "Party", HP: 20, MaxHP: 20}
	require.NoError(t, store.SaveSession(ctx, s))

	_, err = e.AdvanceSession(ctx, s.ID, "p2", session.StatusSetup)
	assert.ErrorIs(t, err, session.ErrNotHost)

	_, err = e.AdvanceSession(ctx, s.ID, "host", session.StatusSetup)
	require.NoError(t, err)
	_, err = e.AdvanceSession(ctx, s.ID, "host", session.StatusPlaying)
	require.NoError(t, err)

	// Wrong actor: rejected, no turn advance.
	_, err = e.SubmitSessionAction(ctx, s.ID, "p2", "charge ahead")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	s, err = e.SubmitSessionAction(ctx, s.ID, "host", "charge ahead")
	require.NoError(t, err)
	assert.Equal(t, 1, s.TurnIndex)
	assert.Equal(t, "p2", s.CurrentPlayer().ID)
	require.Len(t, s.Game.StoryLog, 1)
	require.Len(t, oracle.NextStepCalls, 1)
}

func TestSessionUnplayableModeDoesNotConsumeTurn(t *testing.T) {
	tests := []struct {
		name    string
		mode    state.Mode
		wantErr error
	}{
		{"game over", state.ModeGameOver, ErrTerminalState},
		{"looting", state.ModeLooting, ErrInvalidMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store, _ := newTestEngine()
			ctx := context.Background()

			s, err := e.CreateSession(ctx, session.Player{ID: "host"}, "A shared saga.")
			require.NoError(t, err)
			require.NoError(t, s.Join(session.Player{ID: "p2"}))
			s.Status = session.StatusPlaying
			s.Game.Status = tt.mode
			s.Game.Character = &state.Character{Name: "Party", HP: 20, MaxHP: 20}
			require.NoError(t, store.SaveSession(ctx, s))

			_, err = e.SubmitSessionAction(ctx, s.ID, "host", "charge ahead")
			assert.ErrorIs(t, err, tt.wantErr)

			// Rejected before the index moved: the same player still
			// holds the turn.
			reloaded, err := e.GetSession(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, reloaded.TurnIndex)
			assert.Equal(t, "host", reloaded.CurrentPlayer().ID)
		})
	}
}

func TestSessionTurnIndexSurvivesOracleFailure(t *testing.T) {
	e, store, oracle := newTestEngine()
	ctx := context.Background()

	s, err := e.CreateSession(ctx, session.Player{ID: "host"}, "A shared saga.")
	require.NoError(t, err)
	require.NoError(t, s.Join(session.Player{ID: "p2"}))
	s.Status = session.StatusPlaying
	s.Game.Status = state.ModePlaying
	s.Game.Character = &state.Character{Name: "Party", HP: 20, MaxHP: 20}
	require.NoError(t, store.SaveSession(ctx, s))

	oracle.NextStepFunc = func(ctx context.Context, req services.StoryRequest) (*state.StoryDelta, error) {
		return nil, fmt.Errorf("%w: timeout", services.ErrOracleUnavailable)
	}

	_, err = e.SubmitSessionAction(ctx, s.ID, "host", "charge ahead")
	assert.ErrorIs(t, err, ErrOracleUnavailable)

	// The index advanced and was persisted: a lost turn passes the
	// rotation on rather than reopening it to the same player.
	reloaded, err := e.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TurnIndex)
	assert.Equal(t, "p2", reloaded.CurrentPlayer().ID)
	assert.Empty(t, reloaded.Game.StoryLog, "game state unchanged")
}
