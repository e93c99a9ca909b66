package state

import "strings"

// EquipmentAction is the declared action set for equipment updates.
// For the weapon and armor slots every action is a replace-in-place.
// For gear only "add" has effect; the rest are accepted and ignored.
type EquipmentAction string

const (
	EquipAdd     EquipmentAction = "add"
	EquipRemove  EquipmentAction = "remove"
	EquipReplace EquipmentAction = "replace"
	EquipUpdate  EquipmentAction = "update"
)

// EquipmentSlot identifies the slot an update targets.
type EquipmentSlot string

const (
	SlotWeapon EquipmentSlot = "weapon"
	SlotArmor  EquipmentSlot = "armor"
	SlotGear   EquipmentSlot = "gear"
)

// EquipmentUpdate is one equipment change in a story delta.
type EquipmentUpdate struct {
	Slot   EquipmentSlot   `json:"slot"`
	Action EquipmentAction `json:"action"`
	Item   *Item           `json:"item,omitempty"`
}

// CompanionUpdate adjusts an existing companion's relationship score.
// Names that match no party member are silently ignored.
type CompanionUpdate struct {
	Name              string `json:"name"`
	RelationshipDelta int    `json:"relationship_delta"`
}

// MapUpdate discovers locations and marks one as visited.
type MapUpdate struct {
	NewLocations    []Location `json:"new_locations,omitempty"`
	VisitedLocation string     `json:"visited_location,omitempty"`
}

// EnemySpec describes one enemy in a combat-initiation payload.
type EnemySpec struct {
	Name  string `json:"name"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"max_hp,omitempty"`
}

// CombatStart flags that this step spawns an encounter.
type CombatStart struct {
	Enemies []EnemySpec `json:"enemies"`
}

// TransactionStart flags that this step opens a vendor screen.
type TransactionStart struct {
	VendorName        string `json:"vendor_name"`
	VendorDescription string `json:"vendor_description,omitempty"`
	Offers            []Item `json:"offers,omitempty"`
}

// StoryDelta is the oracle-shaped payload for an ordinary story step.
// The oracle's JSON is schema-validated but semantically untrusted:
// every field is optional and missing fields default to no-ops. Run
// Normalize before handing a delta to the worker.
type StoryDelta struct {
	Story              string            `json:"story"`
	Actions            []string          `json:"actions,omitempty"`
	HPDelta            int               `json:"hp_delta,omitempty"`
	XPDelta            int               `json:"xp_delta,omitempty"`
	AlignmentDelta     *Alignment        `json:"alignment_delta,omitempty"`
	ReputationDeltas   map[string]int    `json:"reputation_deltas,omitempty"`
	EquipmentUpdates   []EquipmentUpdate `json:"equipment_updates,omitempty"`
	CompanionUpdates   []CompanionUpdate `json:"companion_updates,omitempty"`
	NewCompanion       *Companion        `json:"new_companion,omitempty"`
	MapUpdate          *MapUpdate        `json:"map_update,omitempty"`
	Weather            string            `json:"weather,omitempty"`
	TimeOfDay          string            `json:"time_of_day,omitempty"`
	SkillCheck         *SkillCheckResult `json:"skill_check,omitempty"`
	IllustrationPrompt string            `json:"illustration_prompt,omitempty"`
	CombatStart        *CombatStart      `json:"combat_start,omitempty"`
	TransactionStart   *TransactionStart `json:"transaction_start,omitempty"`
}

// Normalize fills defaults so the worker never branches on field
// presence, only on fully-defaulted domain values.
func (d *StoryDelta) Normalize() {
	d.Story = strings.TrimSpace(d.Story)
	if d.Actions == nil {
		d.Actions = []string{}
	}
	if d.ReputationDeltas == nil {
		d.ReputationDeltas = map[string]int{}
	}
	if d.CombatStart != nil && len(d.CombatStart.Enemies) == 0 {
		// A combat flag with no enemies is not an encounter.
		d.CombatStart = nil
	}
	if d.CombatStart != nil {
		for i := range d.CombatStart.Enemies {
			e := &d.CombatStart.Enemies[i]
			if e.HP <= 0 {
				e.HP = 1
			}
			if e.MaxHP < e.HP {
				e.MaxHP = e.HP
			}
		}
	}
	if d.TransactionStart != nil && d.TransactionStart.VendorName == "" {
		d.TransactionStart = nil
	}
	if d.NewCompanion != nil && d.NewCompanion.Name == "" {
		d.NewCompanion = nil
	}
}

// IsEmpty reports whether the delta would change nothing.
func (d *StoryDelta) IsEmpty() bool {
	return d == nil || (d.Story == "" &&
		len(d.Actions) == 0 &&
		d.HPDelta == 0 &&
		d.XPDelta == 0 &&
		d.AlignmentDelta == nil &&
		len(d.ReputationDeltas) == 0 &&
		len(d.EquipmentUpdates) == 0 &&
		len(d.CompanionUpdates) == 0 &&
		d.NewCompanion == nil &&
		d.MapUpdate == nil &&
		d.Weather == "" &&
		d.TimeOfDay == "" &&
		d.CombatStart == nil &&
		d.TransactionStart == nil)
}

// EnemyHit is one enemy attack against the player in a combat turn.
// Damage is the raw value before armor reduction and dodge.
type EnemyHit struct {
	EnemyID string `json:"enemy_id"`
	Damage  int    `json:"damage"`
}

// AttackKind selects which ability score modifies player damage.
type AttackKind string

const (
	AttackMelee  AttackKind = "melee"
	AttackRanged AttackKind = "ranged"
	AttackMagic  AttackKind = "magic"
)

// CombatTurnDelta is the oracle-shaped payload for one combat round.
// The oracle narrates; the resolver arbitrates. Player damage is
// computed from the character sheet, never taken from the payload, and
// CombatOver is ignored unless the player is the one defeated.
type CombatTurnDelta struct {
	Narration  string     `json:"narration"`
	Skill      string     `json:"skill,omitempty"` // skill attributed to the player's action
	Attack     AttackKind `json:"attack,omitempty"`
	TargetID   string     `json:"target_id,omitempty"`
	EnemyHits  []EnemyHit `json:"enemy_hits,omitempty"`
	Actions    []string   `json:"actions,omitempty"`
	CombatOver *bool      `json:"combat_over,omitempty"` // distrusted
}

// Normalize fills defaults for a combat turn payload.
func (d *CombatTurnDelta) Normalize() {
	d.Narration = strings.TrimSpace(d.Narration)
	if d.Attack == "" {
		d.Attack = AttackMelee
	}
	if d.Actions == nil {
		d.Actions = []string{}
	}
	if d.EnemyHits == nil {
		d.EnemyHits = []EnemyHit{}
	}
}

// VictoryDelta is the oracle payload resolving a won encounter.
type VictoryDelta struct {
	Narration string `json:"narration"`
	XP        int    `json:"xp"`
	Gold      int    `json:"gold"`
	Items     []Item `json:"items,omitempty"`
}

// GambleDelta is the oracle payload for one gambling exchange. GoldDelta
// may be negative; the resolver never lets gold drop below zero.
type GambleDelta struct {
	Narration string `json:"narration"`
	GoldDelta int    `json:"gold_delta"`
}

// recruitmentVerbs are the phrases that gate party growth. A new
// companion offered by the oracle joins only if the player's own action
// text names them alongside one of these verbs.
var recruitmentVerbs = []string{"recruit", "join", "invite", "come with"}

// ContainsRecruitmentPhrase reports whether the action text explicitly
// recruits the named companion.
func ContainsRecruitmentPhrase(actionText, companionName string) bool {
	if actionText == "" || companionName == "" {
		return false
	}
	text := strings.ToLower(actionText)
	if !strings.Contains(text, strings.ToLower(companionName)) {
		return false
	}
	for _, verb := range recruitmentVerbs {
		if strings.Contains(text, verb) {
			return true
		}
	}
	return false
}
