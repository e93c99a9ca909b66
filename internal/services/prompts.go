package services

import (
	"fmt"
	"strings"

	"github.com/sagaforge/saga-engine/pkg/state"
)

const storySystemPrompt = `You are the narrator of an interactive fantasy adventure. Continue the story from the player's action. Respond with a single JSON object matching this schema:
{
  "story": "2-4 paragraphs of narration",
  "actions": ["3-4 suggested next actions"],
  "hp_delta": 0,
  "xp_delta": 0,
  "alignment_delta": {"law_chaos": 0, "good_evil": 0},
  "reputation_deltas": {},
  "equipment_updates": [],
  "companion_updates": [],
  "new_companion": null,
  "map_update": null,
  "weather": "",
  "time_of_day": "",
  "skill_check": null,
  "illustration_prompt": "",
  "combat_start": null,
  "transaction_start": null
}
Omit fields that do not apply. When the player attempts something uncertain, adjudicate a skill check: add the provided check modifier as a percentage to a base 50% chance, and report it in skill_check. Start combat only when violence actually breaks out, by filling combat_start with the enemy roster. Open transaction_start only when the player engages a vendor.`

const combatSystemPrompt = `You are narrating one round of combat in an interactive fantasy adventure. The engine computes all damage; you narrate and structure the round. Respond with a single JSON object:
{
  "narration": "the round's events",
  "skill": "the player skill their action used",
  "attack": "melee|ranged|magic",
  "target_id": "the enemy id the player attacked",
  "enemy_hits": [{"enemy_id": "...", "damage": 0}],
  "actions": ["suggested next actions"],
  "combat_over": false
}
Enemy damage values should suit each enemy's menace. Use only enemy ids from the roster provided.`

const victorySystemPrompt = `The player has won the encounter. Narrate the victory and propose spoils. Respond with a single JSON object:
{"narration": "...", "xp": 0, "gold": 0, "items": [{"name": "...", "description": "...", "value": 0}]}`

const gambleSystemPrompt = `You are running a game of chance in a fantasy tavern. Narrate one exchange and decide the outcome. Respond with a single JSON object:
{"narration": "...", "gold_delta": 0}
gold_delta is the player's net change and may not exceed the stake in loss.`

const characterSystemPrompt = `You create player characters for an interactive fantasy adventure. From the player's concept, produce a JSON object:
{
  "character": {"name": "...", "description": "...", "backstory": "...", "hp": 0, "max_hp": 0, "gold": 0, "stats": {"strength": 8, "dexterity": 8, "constitution": 8, "intelligence": 8, "wisdom": 8, "charisma": 8}, "skills": {}},
  "skill_pools": {"combat": [{"name": "...", "description": "..."}], "magic": [...], "utility": [...]},
  "opening": "the adventure's opening scene",
  "actions": ["3-4 opening actions"]
}
Stats total 60 points across the six scores. Offer 4-6 skills per pool, with the character starting at level 1 in a few of them.`

const summarySystemPrompt = `You maintain the rolling summary of an interactive adventure. Merge the prior summary with the recent story segments into a new summary under 400 words. Weight the recent segments at roughly 60% of the detail and compress the prior summary into the rest. Respond with the summary text only.`

// buildStoryContext renders the state the oracle needs for a story step.
func buildStoryContext(req StoryRequest) string {
	var b strings.Builder
	gs := req.Game

	if gs.StoryGuidance != "" {
		fmt.Fprintf(&b, "ADVENTURE GUIDANCE: %s\n\n", gs.StoryGuidance)
	}
	if c := gs.Character; c != nil {
		fmt.Fprintf(&b, "CHARACTER: %s, HP %d/%d, gold %d, alignment law/chaos %d good/evil %d\n",
			c.Name, c.HP, c.MaxHP, c.Gold, c.Alignment.LawChaos, c.Alignment.GoodEvil)
	}
	if len(req.Modifiers) > 0 {
		b.WriteString("SKILL CHECK MODIFIERS (add to base 50%): ")
		for pool, mod := range req.Modifiers {
			fmt.Fprintf(&b, "%s %+d%% ", pool, mod)
		}
		b.WriteString("\n")
	}
	for _, companion := range gs.Companions {
		fmt.Fprintf(&b, "COMPANION: %s (relationship %d)\n", companion.Name, companion.Relationship)
	}
	if gs.Weather != "" || gs.TimeOfDay != "" {
		fmt.Fprintf(&b, "CONDITIONS: %s, %s\n", gs.Weather, gs.TimeOfDay)
	}
	b.WriteString("\nRECENT STORY:\n")
	for _, seg := range gs.RecentStory(10) {
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nPLAYER ACTION: %s\n", req.ActionText)
	return b.String()
}

// buildCombatContext renders the roster and sheets for a combat round.
func buildCombatContext(req CombatRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "PLAYER SHEET: %v\n", req.PlayerContext)
	if len(req.SkillsByName) > 0 {
		fmt.Fprintf(&b, "PLAYER SKILLS: %v\n", req.SkillsByName)
	}
	b.WriteString("ENEMY ROSTER:\n")
	if req.Game.Combat != nil {
		for _, e := range req.Game.Combat.Enemies {
			status := "standing"
			if e.Defeated() {
				status = "defeated"
			}
			fmt.Fprintf(&b, "- id=%s name=%s hp=%d/%d (%s)\n", e.ID, e.Name, e.HP, e.MaxHP, status)
		}
		fmt.Fprintf(&b, "ROUND: %d\n", req.Game.Combat.Round+1)
	}
	fmt.Fprintf(&b, "\nPLAYER ACTION: %s\n", req.ActionText)
	return b.String()
}

// buildVictoryContext summarizes the encounter just won.
func buildVictoryContext(req VictoryRequest) string {
	var b strings.Builder
	if req.Game.Combat != nil {
		b.WriteString("DEFEATED ENEMIES:\n")
		for _, e := range req.Game.Combat.Enemies {
			fmt.Fprintf(&b, "- %s\n", e.Name)
		}
		fmt.Fprintf(&b, "ROUNDS FOUGHT: %d\n", req.Game.Combat.Round)
	}
	if c := req.Game.Character; c != nil {
		fmt.Fprintf(&b, "CHARACTER: %s, HP %d/%d\n", c.Name, c.HP, c.MaxHP)
	}
	return b.String()
}

func buildGambleContext(req GambleRequest) string {
	var b strings.Builder
	if c := req.Game.Character; c != nil {
		fmt.Fprintf(&b, "CHARACTER: %s, gold %d, charisma %d\n", c.Name, c.Gold, c.Stats.Charisma)
	}
	fmt.Fprintf(&b, "STAKE: %d gold\n", req.Stake)
	for _, seg := range req.Game.RecentStory(4) {
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nPLAYER ACTION: %s\n", req.ActionText)
	return b.String()
}

func buildSummaryContext(req SummaryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PRIOR SUMMARY:\n%s\n\nRECENT SEGMENTS:\n", req.PriorSummary)
	for _, seg := range req.RecentSegments {
		b.WriteString(seg)
		b.WriteString("\n")
	}
	return b.String()
}

// segmentTexts extracts the raw text of story segments.
func segmentTexts(segments []state.StorySegment) []string {
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, seg.Text)
	}
	return texts
}
