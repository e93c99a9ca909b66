// Package actor projects characters and enemies into d20 actors for the
// oracle's combat request context.
package actor

import (
	"fmt"

	"github.com/jwebster45206/d20"

	"github.com/sagaforge/saga-engine/pkg/rules"
	"github.com/sagaforge/saga-engine/pkg/state"
)

// Sheet wraps a d20.Actor built from engine state. The actor carries the
// numeric modifiers the rule calculator derives, so the oracle receives
// them explicitly instead of re-deriving stats.
type Sheet struct {
	Actor *d20.Actor
}

// NewCharacterSheet builds a combat sheet for the player character.
// Combat modifiers carry the ability-score damage bonuses and the dodge
// chance so prompt construction never drops them.
func NewCharacterSheet(c *state.Character) (*Sheet, error) {
	if c == nil {
		return nil, fmt.Errorf("character cannot be nil")
	}

	attrs := c.Stats.ToAttributes()
	for skill, level := range c.Skills {
		attrs[skill] = level
	}

	mods := map[string]int{
		"melee":  rules.AbilityModifier(c.Stats.Strength),
		"ranged": rules.AbilityModifier(c.Stats.Dexterity),
		"magic":  rules.AbilityModifier(c.Stats.Wisdom),
		"dodge":  rules.DodgeChance(c.Stats.Dexterity),
	}

	a, err := d20.NewActor(c.Name).
		WithHP(c.MaxHP).
		WithAC(10 + c.ArmorReduction()).
		WithAttributes(attrs).
		WithCombatModifiers(mods).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build character actor: %w", err)
	}
	if c.HP != c.MaxHP && c.HP > 0 {
		if err := a.SetHP(c.HP); err != nil {
			return nil, fmt.Errorf("failed to set character hp: %w", err)
		}
	}
	return &Sheet{Actor: a}, nil
}

// NewEnemySheet builds a combat sheet for one enemy in the roster.
func NewEnemySheet(e state.Enemy) (*Sheet, error) {
	a, err := d20.NewActor(e.ID).
		WithHP(e.MaxHP).
		WithAC(10).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build enemy actor: %w", err)
	}
	if e.HP != e.MaxHP && e.HP > 0 {
		if err := a.SetHP(e.HP); err != nil {
			return nil, fmt.Errorf("failed to set enemy hp: %w", err)
		}
	}
	return &Sheet{Actor: a}, nil
}

// PromptContext flattens the sheet into the key-value form embedded in
// oracle requests.
func (s *Sheet) PromptContext() map[string]int {
	ctx := map[string]int{
		"hp":     s.Actor.HP(),
		"max_hp": s.Actor.MaxHP(),
		"ac":     s.Actor.AC(),
	}
	for _, mod := range s.Actor.GetCombatModifiers() {
		ctx[mod.Reason] = mod.Value
	}
	return ctx
}
