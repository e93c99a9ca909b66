package state

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sagaforge/saga-engine/pkg/rules"
)

// DeltaWorker folds an oracle story delta into a game state. The input
// state is never mutated: Apply returns a complete next state or an
// error, so a failed turn leaves the previous state intact.
type DeltaWorker struct {
	gs         *GameState
	delta      *StoryDelta
	actionText string
	logger     *slog.Logger
	queue      JobQueue // optional, for summary/illustration jobs
	ctx        context.Context
}

// NewDeltaWorker creates a worker for one reducer application.
func NewDeltaWorker(gs *GameState, delta *StoryDelta, logger *slog.Logger) *DeltaWorker {
	return &DeltaWorker{
		gs:     gs,
		delta:  delta,
		logger: logger,
		ctx:    context.Background(),
	}
}

// WithAction records the player's action text, used by the companion
// recruitment gate.
func (dw *DeltaWorker) WithAction(text string) *DeltaWorker {
	dw.actionText = text
	return dw
}

// WithQueue sets the job queue for summary and illustration work.
func (dw *DeltaWorker) WithQueue(queue JobQueue) *DeltaWorker {
	dw.queue = queue
	return dw
}

// WithContext sets the context for queue operations.
func (dw *DeltaWorker) WithContext(ctx context.Context) *DeltaWorker {
	dw.ctx = ctx
	return dw
}

// Apply produces the next game state. Combat and transaction initiation
// branch early: their payloads describe the continuation of a different
// mode, so the ordinary deltas are not applied alongside them.
func (dw *DeltaWorker) Apply() (*GameState, error) {
	if dw.gs.Status != ModePlaying {
		return nil, fmt.Errorf("story delta applied outside playing mode (%s)", dw.gs.Status)
	}
	if dw.gs.Character == nil {
		return nil, fmt.Errorf("story delta applied without a character")
	}

	next, err := dw.gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	dw.delta.Normalize()

	if dw.delta.CombatStart != nil {
		dw.applyEncounterSetup(next)
		return next, nil
	}
	if dw.delta.TransactionStart != nil {
		dw.applyTransactionSetup(next)
		return next, nil
	}

	dw.applyContinuation(next)
	return next, nil
}

// applyEncounterSetup switches the state into combat mode.
func (dw *DeltaWorker) applyEncounterSetup(next *GameState) {
	next.setMode(ModeCombat)
	next.Combat = NewCombatState(dw.delta.CombatStart.Enemies)
	next.Actions = dw.delta.Actions
	if dw.delta.Story != "" {
		next.AppendStory(StorySegment{
			Kind:       SegmentInfo,
			Text:       dw.delta.Story,
			SkillCheck: dw.delta.SkillCheck,
		})
	}
	if dw.logger != nil {
		dw.logger.Info("Encounter started",
			"game_id", next.ID.String(),
			"enemies", len(next.Combat.Enemies))
	}
}

// applyTransactionSetup switches the state into the vendor screen.
func (dw *DeltaWorker) applyTransactionSetup(next *GameState) {
	start := dw.delta.TransactionStart
	next.setMode(ModeTransaction)
	next.Transaction = &TransactionState{
		VendorName:        start.VendorName,
		VendorDescription: start.VendorDescription,
		Offers:            start.Offers,
	}
	if dw.delta.Story != "" {
		next.AppendStory(StorySegment{Kind: SegmentInfo, Text: dw.delta.Story})
	}
}

// applyContinuation handles an ordinary story step. Field applications
// are independent and order-insensitive, except that the HP clamp's
// gameOver outcome is decided last.
func (dw *DeltaWorker) applyContinuation(next *GameState) {
	c := next.Character

	if dw.delta.XPDelta != 0 {
		earned := c.ApplyXP(dw.delta.XPDelta)
		if earned > 0 && dw.logger != nil {
			dw.logger.Info("Skill points earned",
				"game_id", next.ID.String(),
				"points", earned,
				"xp", c.XP)
		}
	}

	oldAlignment := c.Alignment
	if dw.delta.AlignmentDelta != nil {
		c.Alignment = c.Alignment.Add(*dw.delta.AlignmentDelta)
	}

	for faction, delta := range dw.delta.ReputationDeltas {
		if c.Reputation == nil {
			c.Reputation = make(map[string]int)
		}
		c.Reputation[faction] += delta
	}

	for _, update := range dw.delta.EquipmentUpdates {
		dw.applyEquipmentUpdate(c, update)
	}

	if dw.delta.MapUpdate != nil {
		if next.Map == nil {
			next.Map = NewWorldMap()
		}
		for _, loc := range dw.delta.MapUpdate.NewLocations {
			next.Map.AddLocation(loc)
		}
		next.Map.MarkVisited(dw.delta.MapUpdate.VisitedLocation)
	}

	for _, update := range dw.delta.CompanionUpdates {
		if companion := next.FindCompanion(update.Name); companion != nil {
			companion.AdjustRelationship(update.RelationshipDelta)
		}
	}

	dw.applyRecruitment(next)
	dw.applyAlignmentDrift(next, oldAlignment, c.Alignment)

	if dw.delta.Weather != "" {
		next.Weather = dw.delta.Weather
	}
	if dw.delta.TimeOfDay != "" {
		next.TimeOfDay = dw.delta.TimeOfDay
	}
	next.Actions = dw.delta.Actions

	if dw.delta.Story != "" {
		summaryDue := next.AppendStory(StorySegment{
			Kind:       SegmentStory,
			Text:       dw.delta.Story,
			SkillCheck: dw.delta.SkillCheck,
		})
		dw.scheduleJobs(next, summaryDue)
	}

	// HP last: a lethal delta overrides everything else this turn.
	if dw.delta.HPDelta != 0 {
		c.ApplyHP(dw.delta.HPDelta)
	}
	if c.HP <= 0 {
		next.setMode(ModeGameOver)
	}
}

// applyEquipmentUpdate merges one equipment change. Weapon and armor are
// replace-in-place regardless of the declared action; gear honors only
// "add" (the remaining gear actions are declared by the schema but
// intentionally have no effect here).
func (dw *DeltaWorker) applyEquipmentUpdate(c *Character, update EquipmentUpdate) {
	switch update.Slot {
	case SlotWeapon:
		if update.Item != nil {
			c.Equipment.Weapon = update.Item
		}
	case SlotArmor:
		if update.Item != nil {
			c.Equipment.Armor = update.Item
		}
	case SlotGear:
		if update.Action == EquipAdd && update.Item != nil {
			c.AddGear(*update.Item)
			return
		}
		if dw.logger != nil {
			dw.logger.Debug("Ignoring gear action", "action", update.Action)
		}
	}
}

// applyRecruitment admits a new companion only when the player's own
// action text asked for them and the party has room. This is the
// low-trust gate against the oracle unilaterally growing the party.
func (dw *DeltaWorker) applyRecruitment(next *GameState) {
	candidate := dw.delta.NewCompanion
	if candidate == nil {
		return
	}
	if len(next.Companions) >= rules.MaxPartySize {
		if dw.logger != nil {
			dw.logger.Debug("Party full, companion rejected", "name", candidate.Name)
		}
		return
	}
	if next.FindCompanion(candidate.Name) != nil {
		return
	}
	if !ContainsRecruitmentPhrase(dw.actionText, candidate.Name) {
		if dw.logger != nil {
			dw.logger.Debug("No recruitment phrase in action, companion rejected", "name", candidate.Name)
		}
		return
	}
	companion := *candidate
	companion.Alignment = companion.Alignment.Clamp()
	companion.Relationship = rules.ClampAlignment(companion.Relationship)
	if len(candidate.Skills) > 0 {
		companion.Skills = make(map[string]int, len(candidate.Skills))
		for name, level := range candidate.Skills {
			companion.Skills[name] = level
		}
	}
	next.Companions = append(next.Companions, companion)
}

// applyAlignmentDrift decrements the relationship of any companion that
// ended up further from the player's alignment than before the move.
func (dw *DeltaWorker) applyAlignmentDrift(next *GameState, before, after Alignment) {
	if before == after {
		return
	}
	for i := range next.Companions {
		companion := &next.Companions[i]
		if companion.Alignment.Distance(after) > companion.Alignment.Distance(before) {
			companion.AdjustRelationship(-1)
		}
	}
}

// scheduleJobs enqueues background work. Queue failures are logged and
// swallowed: the turn has already been resolved.
func (dw *DeltaWorker) scheduleJobs(next *GameState, summaryDue bool) {
	if dw.queue == nil {
		if summaryDue && dw.logger != nil {
			dw.logger.Warn("No job queue configured, summary refresh skipped",
				"game_id", next.ID.String())
		}
		return
	}
	if summaryDue {
		if err := dw.queue.EnqueueSummaryRefresh(dw.ctx, next.ID); err != nil && dw.logger != nil {
			dw.logger.Error("Failed to enqueue summary refresh",
				"error", err,
				"game_id", next.ID.String())
		}
	}
	if dw.delta.IllustrationPrompt != "" {
		segment := next.TotalSegments - 1
		if err := dw.queue.EnqueueIllustration(dw.ctx, next.ID, segment, dw.delta.IllustrationPrompt); err != nil && dw.logger != nil {
			dw.logger.Error("Failed to enqueue illustration",
				"error", err,
				"game_id", next.ID.String())
		}
	}
}
