// Package engine implements the game operations: one entry point per
// mode, each returning the next game state or a typed failure. All
// oracle output passes through the reducer and resolver, which arbitrate
// every number the oracle proposes.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sagaforge/saga-engine/internal/services"
	"github.com/sagaforge/saga-engine/internal/services/events"
	"github.com/sagaforge/saga-engine/internal/storage"
	"github.com/sagaforge/saga-engine/pkg/actor"
	"github.com/sagaforge/saga-engine/pkg/rules"
	"github.com/sagaforge/saga-engine/pkg/session"
	"github.com/sagaforge/saga-engine/pkg/state"
)

// Engine coordinates storage, the oracle, and the job queue. It is
// stateless between calls; all game data lives in storage.
type Engine struct {
	store       storage.Storage
	oracle      services.Oracle
	queue       state.JobQueue
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

// New creates an engine. Queue and broadcaster are optional.
func New(store storage.Storage, oracle services.Oracle, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		oracle: oracle,
		logger: logger,
	}
}

// WithQueue enables background summary and illustration jobs.
func (e *Engine) WithQueue(queue state.JobQueue) *Engine {
	e.queue = queue
	return e
}

// WithBroadcaster enables realtime event publication.
func (e *Engine) WithBroadcaster(b *events.Broadcaster) *Engine {
	e.broadcaster = b
	return e
}

// loadGame fetches a game state or reports ErrNotFound.
func (e *Engine) loadGame(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	gs, err := e.store.LoadGameState(ctx, id)
	if err != nil {
		return nil, err
	}
	if gs == nil {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return gs, nil
}

// guard checks that an operation is legal in the current mode.
func guard(gs *state.GameState, want state.Mode) error {
	if gs.Status == state.ModeGameOver {
		return ErrTerminalState
	}
	if gs.Status != want {
		return fmt.Errorf("%w: in %s, need %s", ErrInvalidMode, gs.Status, want)
	}
	return nil
}

// NewGame starts a fresh adventure in character creation.
func (e *Engine) NewGame(ctx context.Context, ownerID, storyGuidance string) (*state.GameState, error) {
	gs := state.NewGameState(ownerID)
	gs.StoryGuidance = strings.TrimSpace(storyGuidance)
	if err := e.store.SaveGameState(ctx, gs.ID, gs); err != nil {
		return nil, err
	}
	e.logger.Info("Game created", "game_id", gs.ID.String(), "owner", ownerID)
	return gs, nil
}

// CreateCharacter generates a character from the player's concept and
// moves the game into customization.
func (e *Engine) CreateCharacter(ctx context.Context, id uuid.UUID, concept string) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, state.ModeCharacterCreation); err != nil {
		return nil, err
	}
	if strings.TrimSpace(concept) == "" {
		return nil, fmt.Errorf("%w: character concept required", ErrMalformedPayload)
	}

	proposal, err := e.oracle.GenerateCharacter(ctx, services.CharacterRequest{
		Concept:       concept,
		StoryGuidance: gs.StoryGuidance,
	})
	if err != nil {
		return nil, err
	}

	next, err := gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	character := proposal.Character
	sanitizeCharacter(&character)
	next.Character = &character
	next.SkillPools = proposal.SkillPools
	if err := next.Transition(state.ModeCharacterCustomize); err != nil {
		return nil, err
	}
	if proposal.Opening != "" {
		next.AppendStory(state.StorySegment{Kind: state.SegmentInfo, Text: proposal.Opening})
	}
	next.Actions = proposal.Actions

	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// FinalizeRequest carries the player's customization choices.
type FinalizeRequest struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Skills      []string `json:"skills,omitempty"` // starting skills, must exist in the pools
}

// FinalizeCharacter applies customization and begins play. Play cannot
// begin without a materialized character and story guidance.
func (e *Engine) FinalizeCharacter(ctx context.Context, id uuid.UUID, req FinalizeRequest) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, state.ModeCharacterCustomize); err != nil {
		return nil, err
	}
	if gs.Character == nil || gs.StoryGuidance == "" {
		return nil, fmt.Errorf("%w: character and guidance must be set before play", ErrInvalidMode)
	}

	next, err := gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	c := next.Character
	if req.Name != "" {
		c.Name = req.Name
	}
	if req.Description != "" {
		c.Description = req.Description
	}
	for _, skill := range req.Skills {
		if next.SkillPools.PoolOf(skill) == "" {
			return nil, fmt.Errorf("%w: unknown skill %q", ErrMalformedPayload, skill)
		}
		if c.Skills == nil {
			c.Skills = make(map[string]int)
		}
		if c.Skills[skill] < 1 {
			c.Skills[skill] = 1
		}
	}
	if err := next.Transition(state.ModePlaying); err != nil {
		return nil, err
	}
	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	e.logger.Info("Character finalized", "game_id", next.ID.String(), "name", c.Name)
	return next, nil
}

// SubmitAction resolves one ordinary story step.
func (e *Engine) SubmitAction(ctx context.Context, id uuid.UUID, actionText string) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, state.ModePlaying); err != nil {
		return nil, err
	}
	next, err := e.resolveStory(ctx, gs, actionText)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	e.announceTurn(ctx, gs, next, gs.OwnerID)
	return next, nil
}

// resolveStory runs the oracle round-trip and the reducer. The prior
// state is committed only if both succeed.
func (e *Engine) resolveStory(ctx context.Context, gs *state.GameState, actionText string) (*state.GameState, error) {
	if strings.TrimSpace(actionText) == "" {
		return nil, fmt.Errorf("%w: action text required", ErrMalformedPayload)
	}

	delta, err := e.oracle.NextStep(ctx, services.StoryRequest{
		Game:       gs,
		ActionText: actionText,
		Modifiers:  checkModifiers(gs),
	})
	if err != nil {
		return nil, err
	}

	return state.NewDeltaWorker(gs, delta, e.logger).
		WithAction(actionText).
		WithQueue(e.queue).
		WithContext(ctx).
		Apply()
}

// SubmitCombatAction resolves one combat round, and the victory payload
// when the round fells the last enemy.
func (e *Engine) SubmitCombatAction(ctx context.Context, id uuid.UUID, actionText string) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, state.ModeCombat); err != nil {
		return nil, err
	}
	next, err := e.resolveCombat(ctx, gs, actionText)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	e.announceTurn(ctx, gs, next, gs.OwnerID)
	return next, nil
}

func (e *Engine) resolveCombat(ctx context.Context, gs *state.GameState, actionText string) (*state.GameState, error) {
	if strings.TrimSpace(actionText) == "" {
		return nil, fmt.Errorf("%w: action text required", ErrMalformedPayload)
	}

	req, err := buildCombatRequest(gs, actionText)
	if err != nil {
		return nil, err
	}
	delta, err := e.oracle.CombatTurn(ctx, req)
	if err != nil {
		return nil, err
	}

	next, err := state.NewCombatResolver(gs, delta, e.logger).Resolve()
	if err != nil {
		return nil, err
	}

	// Victory is verified from tracked HP, never from the oracle's own
	// combat-over flag. A dead player ends the fight without spoils.
	if next.Status == state.ModeCombat && next.Combat.AllDefeated() {
		victory, err := e.oracle.Victory(ctx, services.VictoryRequest{Game: next})
		if err != nil {
			return nil, err
		}
		return state.ApplyVictory(next, victory)
	}
	return next, nil
}

// ContinueFromLoot closes the loot screen and resumes play.
func (e *Engine) ContinueFromLoot(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	return e.simpleTransition(ctx, id, state.ModeLooting, state.ModePlaying)
}

// EnterLevelUp opens the level-up screen. Requires unspent skill points.
func (e *Engine) EnterLevelUp(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, state.ModePlaying); err != nil {
		return nil, err
	}
	if gs.Character == nil || gs.Character.SkillPoints <= 0 {
		return nil, fmt.Errorf("%w: no unspent skill points", ErrInvalidMode)
	}
	next, err := gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	if err := next.Transition(state.ModeLevelUp); err != nil {
		return nil, err
	}
	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ConfirmLevelUp spends skill points on skill levels and returns to
// play. Points only decrease by explicit allocation.
func (e *Engine) ConfirmLevelUp(ctx context.Context, id uuid.UUID, allocations map[string]int) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, state.ModeLevelUp); err != nil {
		return nil, err
	}

	total := 0
	for skill, points := range allocations {
		if points <= 0 {
			return nil, fmt.Errorf("%w: allocation for %q must be positive", ErrMalformedPayload, skill)
		}
		if gs.SkillPools.PoolOf(skill) == "" {
			return nil, fmt.Errorf("%w: unknown skill %q", ErrMalformedPayload, skill)
		}
		total += points
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: no allocations", ErrMalformedPayload)
	}
	if total > gs.Character.SkillPoints {
		return nil, ErrInsufficientSkillPoints
	}

	next, err := gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	c := next.Character
	if c.Skills == nil {
		c.Skills = make(map[string]int)
	}
	for skill, points := range allocations {
		c.Skills[skill] += points
	}
	c.SkillPoints -= total
	if err := next.Transition(state.ModePlaying); err != nil {
		return nil, err
	}
	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	e.logger.Info("Level up confirmed", "game_id", next.ID.String(), "points_spent", total)
	return next, nil
}

// CancelLevelUp leaves the level-up screen without spending anything.
func (e *Engine) CancelLevelUp(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	return e.simpleTransition(ctx, id, state.ModeLevelUp, state.ModePlaying)
}

// EnterGambling opens the gambling side activity.
func (e *Engine) EnterGambling(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	return e.simpleTransition(ctx, id, state.ModePlaying, state.ModeGambling)
}

// SubmitGamble resolves one wager. The oracle decides the outcome but
// the loss is clamped to the stake and gold never goes negative.
func (e *Engine) SubmitGamble(ctx context.Context, id uuid.UUID, actionText string, stake int) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, state.ModeGambling); err != nil {
		return nil, err
	}
	if stake <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive", ErrMalformedPayload)
	}
	if stake > gs.Character.Gold {
		return nil, ErrInsufficientGold
	}

	delta, err := e.oracle.Gamble(ctx, services.GambleRequest{
		Game:       gs,
		ActionText: actionText,
		Stake:      stake,
	})
	if err != nil {
		return nil, err
	}

	next, err := gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	goldDelta := delta.GoldDelta
	if goldDelta < -stake {
		goldDelta = -stake
	}
	next.Character.Gold += goldDelta
	if next.Character.Gold < 0 {
		next.Character.Gold = 0
	}
	if delta.Narration != "" {
		next.AppendStory(state.StorySegment{Kind: state.SegmentStory, Text: delta.Narration})
	}
	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ExitGambling returns to play.
func (e *Engine) ExitGambling(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	return e.simpleTransition(ctx, id, state.ModeGambling, state.ModePlaying)
}

// TransactionKind selects the direction of a vendor exchange.
type TransactionKind string

const (
	TransactionBuy  TransactionKind = "buy"
	TransactionSell TransactionKind = "sell"
)

// TransactionRequest is one vendor exchange.
type TransactionRequest struct {
	Kind     TransactionKind `json:"kind"`
	ItemName string          `json:"item_name"`
}

// PerformTransaction buys from the vendor's offers or sells from the
// gear bag at charisma-adjusted prices. The game stays in transaction
// mode until ExitTransaction.
func (e *Engine) PerformTransaction(ctx context.Context, id uuid.UUID, req TransactionRequest) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, state.ModeTransaction); err != nil {
		return nil, err
	}

	next, err := gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	c := next.Character

	switch req.Kind {
	case TransactionBuy:
		idx := -1
		for i, offer := range next.Transaction.Offers {
			if offer.Name == req.ItemName {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: vendor does not offer %q", ErrMalformedPayload, req.ItemName)
		}
		item := next.Transaction.Offers[idx]
		price := rules.BuyPrice(item.Value, c.Stats.Charisma)
		if price > c.Gold {
			return nil, ErrInsufficientGold
		}
		c.Gold -= price
		c.AddGear(item)
		next.Transaction.Offers = append(next.Transaction.Offers[:idx], next.Transaction.Offers[idx+1:]...)
		e.logger.Info("Item bought", "game_id", next.ID.String(), "item", item.Name, "price", price)

	case TransactionSell:
		item := c.RemoveGear(req.ItemName)
		if item == nil {
			return nil, fmt.Errorf("%w: no gear named %q", ErrMalformedPayload, req.ItemName)
		}
		price := rules.SellPrice(item.Value, c.Stats.Charisma)
		c.Gold += price
		next.Transaction.Offers = append(next.Transaction.Offers, *item)
		e.logger.Info("Item sold", "game_id", next.ID.String(), "item", item.Name, "price", price)

	default:
		return nil, fmt.Errorf("%w: unknown transaction kind %q", ErrMalformedPayload, req.Kind)
	}

	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ExitTransaction leaves the vendor screen.
func (e *Engine) ExitTransaction(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	return e.simpleTransition(ctx, id, state.ModeTransaction, state.ModePlaying)
}

// LiquidateGear sells a gear item outside any vendor screen at the flat
// half-value rate. Charisma does not apply on this path.
func (e *Engine) LiquidateGear(ctx context.Context, id uuid.UUID, itemName string) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, state.ModePlaying); err != nil {
		return nil, err
	}

	next, err := gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	item := next.Character.RemoveGear(itemName)
	if item == nil {
		return nil, fmt.Errorf("%w: no gear named %q", ErrMalformedPayload, itemName)
	}
	next.Character.Gold += rules.LiquidationPrice(item.Value)

	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// GetGame loads a game state for display.
func (e *Engine) GetGame(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	return e.loadGame(ctx, id)
}

// ListSaves lists an owner's saved games.
func (e *Engine) ListSaves(ctx context.Context, ownerID string) ([]storage.SaveSummary, error) {
	return e.store.ListGameStates(ctx, ownerID)
}

// DeleteGame removes a saved game.
func (e *Engine) DeleteGame(ctx context.Context, id uuid.UUID) error {
	return e.store.DeleteGameState(ctx, id)
}

// simpleTransition performs a bare mode change with no other effects.
func (e *Engine) simpleTransition(ctx context.Context, id uuid.UUID, from, to state.Mode) (*state.GameState, error) {
	gs, err := e.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guard(gs, from); err != nil {
		return nil, err
	}
	next, err := gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	if err := next.Transition(to); err != nil {
		return nil, err
	}
	if err := e.store.SaveGameState(ctx, next.ID, next); err != nil {
		return nil, err
	}
	if e.broadcaster != nil {
		_ = e.broadcaster.PublishModeChanged(ctx, next.ID, string(from), string(to))
	}
	return next, nil
}

// announceTurn publishes turn events; failures are logged, never fatal.
func (e *Engine) announceTurn(ctx context.Context, prev, next *state.GameState, playerID string) {
	if e.broadcaster == nil {
		return
	}
	if err := e.broadcaster.PublishTurnResolved(ctx, next.ID, playerID, string(next.Status), next.TotalSegments); err != nil {
		e.logger.Warn("Failed to publish turn event", "error", err, "game_id", next.ID.String())
	}
	if prev.Status != next.Status {
		_ = e.broadcaster.PublishModeChanged(ctx, next.ID, string(prev.Status), string(next.Status))
	}
}

// checkModifiers computes the per-pool skill check modifiers handed to
// the oracle alongside every story step.
func checkModifiers(gs *state.GameState) map[string]int {
	if gs.Character == nil {
		return nil
	}
	stats := gs.Character.Stats
	return map[string]int{
		string(rules.PoolCombat):  rules.CheckModifier(rules.PoolCombat, stats),
		string(rules.PoolMagic):   rules.CheckModifier(rules.PoolMagic, stats),
		string(rules.PoolUtility): rules.CheckModifier(rules.PoolUtility, stats),
	}
}

// buildCombatRequest flattens the character and enemy sheets for the
// combat prompt.
func buildCombatRequest(gs *state.GameState, actionText string) (services.CombatRequest, error) {
	playerSheet, err := actor.NewCharacterSheet(gs.Character)
	if err != nil {
		return services.CombatRequest{}, err
	}
	enemyContexts := make(map[string]map[string]int, len(gs.Combat.Enemies))
	for _, enemy := range gs.Combat.Enemies {
		sheet, err := actor.NewEnemySheet(enemy)
		if err != nil {
			return services.CombatRequest{}, err
		}
		enemyContexts[enemy.ID] = sheet.PromptContext()
	}
	return services.CombatRequest{
		Game:          gs,
		ActionText:    actionText,
		PlayerContext: playerSheet.PromptContext(),
		EnemyContexts: enemyContexts,
		SkillsByName:  gs.Character.Skills,
	}, nil
}

// sanitizeCharacter bounds an oracle-proposed character.
func sanitizeCharacter(c *state.Character) {
	if c.MaxHP <= 0 {
		c.MaxHP = 20
	}
	if c.HP <= 0 || c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
	if c.Gold < 0 {
		c.Gold = 0
	}
	c.XP = 0
	c.SkillPoints = 0
	c.Alignment = c.Alignment.Clamp()
	for name, level := range c.Skills {
		if level < 1 {
			delete(c.Skills, name)
		}
	}
}

// Session operations

// CreateSession starts a multiplayer session owned by the host.
func (e *Engine) CreateSession(ctx context.Context, host session.Player, storyGuidance string) (*session.Session, error) {
	s := session.New(host)
	s.Game.StoryGuidance = strings.TrimSpace(storyGuidance)
	if err := e.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	e.logger.Info("Session created", "session_id", s.ID.String(), "host", host.ID)
	return s, nil
}

// loadSession fetches a session or reports ErrNotFound.
func (e *Engine) loadSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	s, err := e.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// JoinSession adds a player to the roster.
func (e *Engine) JoinSession(ctx context.Context, id uuid.UUID, p session.Player) (*session.Session, error) {
	s, err := e.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Join(p); err != nil {
		return nil, err
	}
	if err := e.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	if e.broadcaster != nil {
		_ = e.broadcaster.PublishSessionUpdated(ctx, s.ID, string(s.Status), len(s.Players))
	}
	return s, nil
}

// ReadySession marks a player's readiness flag.
func (e *Engine) ReadySession(ctx context.Context, id uuid.UUID, playerID string, ready bool) (*session.Session, error) {
	s, err := e.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.SetReady(playerID, ready); err != nil {
		return nil, err
	}
	if err := e.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	if e.broadcaster != nil {
		_ = e.broadcaster.PublishSessionUpdated(ctx, s.ID, string(s.Status), len(s.Players))
	}
	return s, nil
}

// AdvanceSession moves the session lifecycle forward. Host only.
func (e *Engine) AdvanceSession(ctx context.Context, id uuid.UUID, callerID string, to session.Status) (*session.Session, error) {
	s, err := e.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Advance(callerID, to); err != nil {
		return nil, err
	}
	if err := e.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	if e.broadcaster != nil {
		_ = e.broadcaster.PublishSessionUpdated(ctx, s.ID, string(s.Status), len(s.Players))
	}
	return s, nil
}

// SubmitSessionAction resolves one turn of a shared game. The turn
// index advances and is persisted before the oracle round-trip; a
// failed turn passes the rotation on rather than rolling back.
func (e *Engine) SubmitSessionAction(ctx context.Context, id uuid.UUID, playerID, actionText string) (*session.Session, error) {
	s, err := e.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != session.StatusPlaying {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidMode, s.Status)
	}

	// Reject unplayable modes before the turn index moves: a rejected
	// action must leave the session untouched.
	prev := s.Game
	switch prev.Status {
	case state.ModePlaying, state.ModeCombat:
	case state.ModeGameOver:
		return nil, ErrTerminalState
	default:
		return nil, fmt.Errorf("%w: shared game is in %s", ErrInvalidMode, prev.Status)
	}

	if err := s.BeginTurn(playerID); err != nil {
		if e.broadcaster != nil {
			_ = e.broadcaster.PublishTurnRejected(ctx, s.Game.ID, playerID, err.Error())
		}
		return nil, err
	}
	// Persist the advanced index before the slow oracle call.
	if err := e.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}

	var next *state.GameState
	if prev.Status == state.ModeCombat {
		next, err = e.resolveCombat(ctx, prev, actionText)
	} else {
		next, err = e.resolveStory(ctx, prev, actionText)
	}
	if err != nil {
		if e.broadcaster != nil {
			_ = e.broadcaster.PublishTurnRejected(ctx, s.Game.ID, playerID, "turn failed")
		}
		return nil, err
	}

	s.Game = next
	if err := e.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	e.announceTurn(ctx, prev, next, playerID)
	return s, nil
}

// GetSession loads a session for display.
func (e *Engine) GetSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	return e.loadSession(ctx, id)
}
