package state

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/sagaforge/saga-engine/pkg/rules"
)

// Enemy is one combatant in an active encounter. Defeated enemies are
// retained in the roster at 0 HP so partial victories can be narrated.
type Enemy struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"max_hp"`
}

// Defeated reports whether the enemy is out of the fight.
func (e Enemy) Defeated() bool {
	return e.HP <= 0
}

// CombatState is the mode-specific sub-state for an encounter.
type CombatState struct {
	Enemies []Enemy `json:"enemies"`
	Round   int     `json:"round"`
}

// NewCombatState builds an encounter from a combat-initiation payload.
// Enemy ids are derived from the name and roster index so duplicate
// names stay addressable.
func NewCombatState(specs []EnemySpec) *CombatState {
	cs := &CombatState{Enemies: make([]Enemy, 0, len(specs))}
	for i, spec := range specs {
		maxHP := spec.MaxHP
		if maxHP < spec.HP {
			maxHP = spec.HP
		}
		cs.Enemies = append(cs.Enemies, Enemy{
			ID:    enemyID(spec.Name, i),
			Name:  spec.Name,
			HP:    spec.HP,
			MaxHP: maxHP,
		})
	}
	return cs
}

func enemyID(name string, index int) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(strings.ReplaceAll(name, " ", "_")), index)
}

// FindEnemy returns a pointer into the roster, nil for unknown ids.
func (cs *CombatState) FindEnemy(id string) *Enemy {
	for i := range cs.Enemies {
		if cs.Enemies[i].ID == id {
			return &cs.Enemies[i]
		}
	}
	return nil
}

// FirstStanding returns the first enemy still in the fight, nil if none.
func (cs *CombatState) FirstStanding() *Enemy {
	for i := range cs.Enemies {
		if !cs.Enemies[i].Defeated() {
			return &cs.Enemies[i]
		}
	}
	return nil
}

// AllDefeated reports whether every enemy is at 0 HP.
func (cs *CombatState) AllDefeated() bool {
	for _, e := range cs.Enemies {
		if !e.Defeated() {
			return false
		}
	}
	return true
}

// CombatResolver applies one combat round to a game state. The oracle
// narrates the round; the resolver computes all HP math itself and
// arbitrates the outcome from the values it tracks.
type CombatResolver struct {
	gs     *GameState
	delta  *CombatTurnDelta
	logger *slog.Logger
	roll   func(n int) int
}

// NewCombatResolver creates a resolver for a single turn.
func NewCombatResolver(gs *GameState, delta *CombatTurnDelta, logger *slog.Logger) *CombatResolver {
	return &CombatResolver{
		gs:     gs,
		delta:  delta,
		logger: logger,
		roll:   rand.Intn,
	}
}

// WithRoll replaces the random source. Tests inject a deterministic roll.
func (cr *CombatResolver) WithRoll(roll func(n int) int) *CombatResolver {
	cr.roll = roll
	return cr
}

// Resolve produces the next game state for one combat round. The input
// state is never mutated. On a player defeat the mode becomes gameOver
// even if every enemy fell in the same round.
func (cr *CombatResolver) Resolve() (*GameState, error) {
	if cr.gs.Status != ModeCombat || cr.gs.Combat == nil {
		return nil, fmt.Errorf("combat resolution outside combat mode (%s)", cr.gs.Status)
	}
	if cr.gs.Character == nil {
		return nil, fmt.Errorf("combat resolution without a character")
	}

	next, err := cr.gs.DeepCopy()
	if err != nil {
		return nil, err
	}
	cr.delta.Normalize()

	c := next.Character
	combat := next.Combat
	combat.Round++

	// Player attack: weapon base damage scaled by the attributed skill,
	// plus the ability modifier for the attack kind. The payload's own
	// damage numbers are never consulted.
	target := combat.FindEnemy(cr.delta.TargetID)
	if target == nil {
		target = combat.FirstStanding()
	}
	if target != nil && !target.Defeated() {
		dmg := rules.WeaponDamage(c.WeaponBaseDamage(), c.SkillLevel(cr.delta.Skill))
		dmg += cr.abilityModifier(c, cr.delta.Attack)
		if dmg < 0 {
			dmg = 0
		}
		target.HP -= dmg
		if target.HP < 0 {
			target.HP = 0
		}
		if cr.logger != nil {
			cr.logger.Debug("Player attack resolved",
				"target", target.ID,
				"damage", dmg,
				"target_hp", target.HP)
		}
	}

	// Enemy attacks: armor reduction applies, and each hit can miss
	// outright on a dodge roll.
	dodge := rules.DodgeChance(c.Stats.Dexterity)
	for _, hit := range cr.delta.EnemyHits {
		attacker := combat.FindEnemy(hit.EnemyID)
		if attacker == nil || attacker.Defeated() {
			continue
		}
		if dodge > 0 && cr.roll(100) < dodge {
			if cr.logger != nil {
				cr.logger.Debug("Attack dodged", "enemy", hit.EnemyID)
			}
			continue
		}
		dmg := hit.Damage - c.ArmorReduction()
		if dmg <= 0 {
			continue
		}
		c.ApplyHP(-dmg)
	}

	next.AppendStory(StorySegment{Kind: SegmentStory, Text: cr.delta.Narration})

	// The oracle's combat-over flag is only believed when the player is
	// the one defeated; enemy defeat is verified from tracked HP.
	if c.HP <= 0 {
		next.setMode(ModeGameOver)
		return next, nil
	}

	next.Actions = cr.delta.Actions
	return next, nil
}

func (cr *CombatResolver) abilityModifier(c *Character, kind AttackKind) int {
	switch kind {
	case AttackRanged:
		return rules.AbilityModifier(c.Stats.Dexterity)
	case AttackMagic:
		return rules.AbilityModifier(c.Stats.Wisdom)
	default:
		return rules.AbilityModifier(c.Stats.Strength)
	}
}

// ApplyVictory folds a victory payload into the state: XP accrual, loot
// gold and items, and the transition to the loot screen. Call only after
// AllDefeated reports true.
func ApplyVictory(gs *GameState, victory *VictoryDelta) (*GameState, error) {
	if gs.Status != ModeCombat || gs.Combat == nil {
		return nil, fmt.Errorf("victory resolution outside combat mode (%s)", gs.Status)
	}
	if !gs.Combat.AllDefeated() {
		return nil, fmt.Errorf("victory resolution with enemies still standing")
	}

	next, err := gs.DeepCopy()
	if err != nil {
		return nil, err
	}

	c := next.Character
	if victory.XP > 0 {
		c.ApplyXP(victory.XP)
	}
	if victory.Gold > 0 {
		c.Gold += victory.Gold
	}
	for _, item := range victory.Items {
		c.AddGear(item)
	}
	if victory.Narration != "" {
		next.AppendStory(StorySegment{Kind: SegmentStory, Text: victory.Narration})
	}

	next.setMode(ModeLooting)
	next.Loot = &LootState{
		Narration: victory.Narration,
		XP:        victory.XP,
		Gold:      victory.Gold,
		Items:     victory.Items,
	}
	return next, nil
}
