package state

import (
	"github.com/sagaforge/saga-engine/pkg/rules"
)

// Alignment is the two-axis moral position. Both axes are clamped to
// [-100, 100].
type Alignment struct {
	LawChaos int `json:"law_chaos"` // -100 chaotic .. +100 lawful
	GoodEvil int `json:"good_evil"` // -100 evil .. +100 good
}

// Clamp bounds both axes.
func (a Alignment) Clamp() Alignment {
	return Alignment{
		LawChaos: rules.ClampAlignment(a.LawChaos),
		GoodEvil: rules.ClampAlignment(a.GoodEvil),
	}
}

// Add applies a delta and clamps the result.
func (a Alignment) Add(delta Alignment) Alignment {
	return Alignment{
		LawChaos: a.LawChaos + delta.LawChaos,
		GoodEvil: a.GoodEvil + delta.GoodEvil,
	}.Clamp()
}

// Distance is the manhattan distance between two alignments, used for
// companion approval drift.
func (a Alignment) Distance(other Alignment) int {
	return abs(a.LawChaos-other.LawChaos) + abs(a.GoodEvil-other.GoodEvil)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Item is any carryable object. Damage and DamageReduction are zero for
// items that are neither weapons nor armor.
type Item struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Value           int    `json:"value"`
	Damage          int    `json:"damage,omitempty"`
	DamageReduction int    `json:"damage_reduction,omitempty"`
}

// Equipment is the character's three slots: one weapon, one armor piece,
// and an unbounded gear bag.
type Equipment struct {
	Weapon *Item  `json:"weapon,omitempty"`
	Armor  *Item  `json:"armor,omitempty"`
	Gear   []Item `json:"gear,omitempty"`
}

// Character is the player character sheet.
type Character struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Backstory    string         `json:"backstory,omitempty"`
	StorySummary string         `json:"story_summary,omitempty"` // rolling summary, refreshed in the background
	HP           int            `json:"hp"`
	MaxHP        int            `json:"max_hp"`
	XP           int            `json:"xp"`
	SkillPoints  int            `json:"skill_points"`
	Gold         int            `json:"gold"`
	Stats        rules.Stats    `json:"stats"`
	Skills       map[string]int `json:"skills,omitempty"` // skill name -> level
	Alignment    Alignment      `json:"alignment"`
	Reputation   map[string]int `json:"reputation,omitempty"` // faction -> standing
	Equipment    Equipment      `json:"equipment"`
}

// ApplyHP applies a hit point delta, clamped to [0, MaxHP].
func (c *Character) ApplyHP(delta int) {
	c.HP = rules.ClampHP(c.HP+delta, c.MaxHP)
}

// ApplyXP applies an XP delta and accrues skill points for each 100-XP
// boundary crossed. XP never decreases. Returns the points earned.
func (c *Character) ApplyXP(delta int) int {
	if delta <= 0 {
		return 0
	}
	earned := rules.SkillPointsEarned(c.XP, c.XP+delta)
	c.XP += delta
	c.SkillPoints += earned
	return earned
}

// SkillLevel returns the character's level in a skill, minimum 1.
// Unknown skills resolve at level 1 so an oracle-attributed skill the
// character never trained still produces base damage.
func (c *Character) SkillLevel(name string) int {
	if level, ok := c.Skills[name]; ok && level > 1 {
		return level
	}
	return 1
}

// WeaponBaseDamage is the equipped weapon's base damage, 1 when unarmed.
func (c *Character) WeaponBaseDamage() int {
	if c.Equipment.Weapon == nil || c.Equipment.Weapon.Damage <= 0 {
		return 1
	}
	return c.Equipment.Weapon.Damage
}

// ArmorReduction is the flat damage reduction from equipped armor.
func (c *Character) ArmorReduction() int {
	if c.Equipment.Armor == nil {
		return 0
	}
	return c.Equipment.Armor.DamageReduction
}

// AddGear appends an item to the gear bag.
func (c *Character) AddGear(item Item) {
	c.Equipment.Gear = append(c.Equipment.Gear, item)
}

// RemoveGear removes the first gear item with the given name and returns
// it, or nil when the bag holds no such item.
func (c *Character) RemoveGear(name string) *Item {
	for i := range c.Equipment.Gear {
		if c.Equipment.Gear[i].Name == name {
			item := c.Equipment.Gear[i]
			c.Equipment.Gear = append(c.Equipment.Gear[:i], c.Equipment.Gear[i+1:]...)
			return &item
		}
	}
	return nil
}

// Companion is a recruited party member. Relationship shares the
// alignment scale and clamping.
type Companion struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Personality  string         `json:"personality,omitempty"`
	Skills       map[string]int `json:"skills,omitempty"`
	Alignment    Alignment      `json:"alignment"`
	Relationship int            `json:"relationship"`
}

// AdjustRelationship applies a clamped relationship delta.
func (c *Companion) AdjustRelationship(delta int) {
	c.Relationship = rules.ClampAlignment(c.Relationship + delta)
}

// SkillDef is one skill offered by the adventure's skill pools.
type SkillDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SkillPools partitions the adventure's skills into the three check
// pools. Fixed at character creation.
type SkillPools map[rules.SkillPool][]SkillDef

// PoolOf returns the pool containing the named skill, or "" if the
// skill is not defined.
func (sp SkillPools) PoolOf(skillName string) rules.SkillPool {
	for pool, skills := range sp {
		for _, s := range skills {
			if s.Name == skillName {
				return pool
			}
		}
	}
	return ""
}
