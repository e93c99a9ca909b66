package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatBonus(t *testing.T) {
	tests := []struct {
		value    int
		expected int
	}{
		{-5, 0},
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{8, 2},
		{9, 4},
		{12, 4},
		{13, 8},
		{16, 8},
		{17, 16},
		{20, 16},
		{21, 20},
		{24, 20},
		{25, 24},
		{28, 24},
		{32, 28},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, StatBonus(tt.value), "StatBonus(%d)", tt.value)
	}
}

func TestStatBonus_NonDecreasing(t *testing.T) {
	prev := StatBonus(0)
	for v := 1; v <= 100; v++ {
		b := StatBonus(v)
		assert.GreaterOrEqual(t, b, prev, "bonus dropped at value %d", v)
		prev = b
	}
}

func TestCheckModifier(t *testing.T) {
	stats := Stats{
		Strength:     16, // bonus 8
		Dexterity:    10, // bonus 4
		Constitution: 8,  // bonus 2
		Intelligence: 12, // bonus 4
		Wisdom:       14, // bonus 8
		Charisma:     4,  // bonus 1
	}

	tests := []struct {
		name     string
		pool     SkillPool
		expected int
	}{
		{"combat pool uses STR+CON", PoolCombat, 10},
		{"magic pool uses INT+WIS", PoolMagic, 12},
		{"utility pool uses CHA+DEX", PoolUtility, 5},
		{"unknown pool yields zero", SkillPool("crafting"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CheckModifier(tt.pool, stats))
		})
	}
}

func TestAbilityModifier(t *testing.T) {
	assert.Equal(t, 0, AbilityModifier(8))
	assert.Equal(t, 0, AbilityModifier(9))
	assert.Equal(t, 1, AbilityModifier(10))
	assert.Equal(t, 4, AbilityModifier(16))
	assert.Equal(t, -1, AbilityModifier(6))
	assert.Equal(t, -2, AbilityModifier(5))
}

func TestDodgeChance(t *testing.T) {
	assert.Equal(t, 15, DodgeChance(10))
	assert.Equal(t, 30, DodgeChance(20))
	assert.Equal(t, 50, DodgeChance(34), "capped at 50")
	assert.Equal(t, 50, DodgeChance(100))
	assert.Equal(t, 0, DodgeChance(-2))
}

func TestSkillMultiplier_Table(t *testing.T) {
	expected := map[int]float64{
		1: 1.0,
		2: 1.2,
		3: 1.4,
		4: 1.8,
		5: 2.6,
		6: 4.2,
	}
	for level, want := range expected {
		assert.InDelta(t, want, SkillMultiplier(level), 1e-9, "level %d", level)
	}
}

func TestSkillMultiplier_BeyondTable(t *testing.T) {
	// Each step past 6 doubles the previous increment.
	for n := 7; n <= 12; n++ {
		increment := SkillMultiplier(n) - SkillMultiplier(n-1)
		prevIncrement := SkillMultiplier(n-1) - SkillMultiplier(n-2)
		assert.InDelta(t, 2*prevIncrement, increment, 1e-6, "level %d", n)
	}
	// 4.2 + 2*1.6 = 7.4
	assert.InDelta(t, 7.4, SkillMultiplier(7), 1e-9)
}

func TestWeaponDamage(t *testing.T) {
	// Base 10 at skill level 5: round(10*2.6) = 26.
	assert.Equal(t, 26, WeaponDamage(10, 5))
	assert.Equal(t, 12, WeaponDamage(10, 2))
	assert.Equal(t, 10, WeaponDamage(10, 0), "levels below 1 use the level 1 multiplier")
}

func TestVendorPricing(t *testing.T) {
	// CHA=14: buy 0.88, sell 0.62.
	assert.InDelta(t, 0.88, BuyMultiplier(14), 1e-9)
	assert.InDelta(t, 0.62, SellMultiplier(14), 1e-9)
	assert.Equal(t, 88, BuyPrice(100, 14))
	assert.Equal(t, 62, SellPrice(100, 14))

	// Buy multiplier never drops below 0.5 no matter the charisma.
	assert.InDelta(t, 0.5, BuyMultiplier(50), 1e-9)
	assert.Equal(t, 50, BuyPrice(100, 99))

	// Low charisma pays more and sells for less.
	assert.Equal(t, 108, BuyPrice(100, 4))
	assert.Equal(t, 42, SellPrice(100, 4))
}

func TestLiquidationPrice(t *testing.T) {
	assert.Equal(t, 50, LiquidationPrice(100))
	assert.Equal(t, 12, LiquidationPrice(25))
}

func TestSkillPointsEarned(t *testing.T) {
	tests := []struct {
		name     string
		oldXP    int
		newXP    int
		expected int
	}{
		{"no boundary crossed", 10, 90, 0},
		{"single boundary", 95, 140, 1},
		{"multiple boundaries", 95, 340, 3},
		{"exact boundary", 100, 200, 1},
		{"landing on boundary", 50, 100, 1},
		{"no change", 150, 150, 0},
		{"xp loss grants nothing", 250, 150, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SkillPointsEarned(tt.oldXP, tt.newXP))
		})
	}
}

func TestClamps(t *testing.T) {
	assert.Equal(t, -100, ClampAlignment(-150))
	assert.Equal(t, 100, ClampAlignment(180))
	assert.Equal(t, 42, ClampAlignment(42))

	assert.Equal(t, 0, ClampHP(-10, 30))
	assert.Equal(t, 30, ClampHP(45, 30))
	assert.Equal(t, 12, ClampHP(12, 30))
}
