// Package rules holds the deterministic game math: stat bonuses,
// skill check modifiers, combat damage, and vendor pricing. Every
// function here is pure and total over valid numeric input.
package rules

import "math"

// SkillPool is one of the three fixed categories that partition all skills.
type SkillPool string

const (
	PoolCombat  SkillPool = "combat"
	PoolMagic   SkillPool = "magic"
	PoolUtility SkillPool = "utility"
)

// Stats are the six core ability scores. Values grow without bound.
type Stats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// ToAttributes converts Stats to a map for d20.Actor compatibility.
func (s Stats) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// StatBonus converts a raw attribute value into the flat bonus used for
// skill checks. The curve is super-linear at low investment and settles
// into +4 per 4 points past 20.
func StatBonus(value int) int {
	switch {
	case value <= 0:
		return 0
	case value <= 4:
		return 1
	case value <= 8:
		return 2
	case value <= 12:
		return 4
	case value <= 16:
		return 8
	case value <= 20:
		return 16
	default:
		return 16 + 4*int(math.Ceil(float64(value-20)/4.0))
	}
}

// CheckModifier returns the percentage added to the oracle's base success
// chance for a skill check in the given pool. Skills outside the three
// pools get no modifier.
func CheckModifier(pool SkillPool, stats Stats) int {
	switch pool {
	case PoolCombat:
		return StatBonus(stats.Strength) + StatBonus(stats.Constitution)
	case PoolMagic:
		return StatBonus(stats.Intelligence) + StatBonus(stats.Wisdom)
	case PoolUtility:
		return StatBonus(stats.Charisma) + StatBonus(stats.Dexterity)
	default:
		return 0
	}
}

// AbilityModifier is the combat-scale modifier, distinct from StatBonus.
// Applied as an additive damage bonus for melee (STR), ranged (DEX) and
// magic (WIS) actions.
func AbilityModifier(stat int) int {
	return int(math.Floor(float64(stat-8) / 2.0))
}

// DodgeChance is the percent chance an enemy attack misses outright,
// capped at 50.
func DodgeChance(dexterity int) int {
	chance := int(float64(dexterity) * 1.5)
	if chance > 50 {
		return 50
	}
	if chance < 0 {
		return 0
	}
	return chance
}

// skillMultipliers covers levels 1-6. Past level 6 each step doubles the
// previous increment.
var skillMultipliers = map[int]float64{
	1: 1.0,
	2: 1.2,
	3: 1.4,
	4: 1.8,
	5: 2.6,
	6: 4.2,
}

// SkillMultiplier maps a skill level to a weapon damage multiplier.
// Levels below 1 are treated as level 1.
func SkillMultiplier(level int) float64 {
	if level < 1 {
		level = 1
	}
	if m, ok := skillMultipliers[level]; ok {
		return m
	}
	// mult(n) = mult(n-1) + 2*(mult(n-1) - mult(n-2))
	prev2 := skillMultipliers[5]
	prev := skillMultipliers[6]
	for n := 7; n <= level; n++ {
		next := prev + 2*(prev-prev2)
		prev2, prev = prev, next
	}
	return prev
}

// WeaponDamage is the skill-scaled weapon damage before ability modifiers.
func WeaponDamage(baseDamage, skillLevel int) int {
	return int(math.Round(float64(baseDamage) * SkillMultiplier(skillLevel)))
}

// BuyMultiplier is the vendor price multiplier when the character buys,
// floored at 0.5 regardless of charisma.
func BuyMultiplier(charisma int) float64 {
	m := 1.0 - float64(charisma-8)*0.02
	if m < 0.5 {
		return 0.5
	}
	return m
}

// SellMultiplier is the vendor price multiplier when the character sells.
func SellMultiplier(charisma int) float64 {
	return 0.5 + float64(charisma-8)*0.02
}

// BuyPrice rounds against the buyer.
func BuyPrice(value, charisma int) int {
	return int(math.Ceil(float64(value) * BuyMultiplier(charisma)))
}

// SellPrice rounds against the seller.
func SellPrice(value, charisma int) int {
	return int(math.Floor(float64(value) * SellMultiplier(charisma)))
}

// LiquidationPrice is the flat 50% sell-back used outside a transaction
// screen. Charisma does not apply on this path.
func LiquidationPrice(value int) int {
	return value / 2
}
