package rules

// SkillPointThreshold is the XP required per skill point.
const SkillPointThreshold = 100

// SkillPointsEarned returns the skill points granted by an XP change.
// Crossing each 100-XP boundary grants exactly one point, so multiple
// boundary crossings in a single step grant multiple points.
func SkillPointsEarned(oldXP, newXP int) int {
	if newXP < oldXP {
		return 0
	}
	return newXP/SkillPointThreshold - oldXP/SkillPointThreshold
}

// MaxPartySize is the companion cap for a single character.
const MaxPartySize = 5

// AlignmentMin and AlignmentMax bound each alignment axis and companion
// relationship scores.
const (
	AlignmentMin = -100
	AlignmentMax = 100
)

// ClampAlignment clamps a single alignment axis or relationship score.
func ClampAlignment(v int) int {
	if v < AlignmentMin {
		return AlignmentMin
	}
	if v > AlignmentMax {
		return AlignmentMax
	}
	return v
}

// ClampHP clamps hit points into [0, maxHP].
func ClampHP(hp, maxHP int) int {
	if hp < 0 {
		return 0
	}
	if hp > maxHP {
		return maxHP
	}
	return hp
}
