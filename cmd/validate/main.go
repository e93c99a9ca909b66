// Command validate checks an exported game-state JSON file for
// structural problems before it is re-imported.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sagaforge/saga-engine/pkg/state"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <gamestate.json>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	fmt.Printf("Validating %s...\n", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	if !json.Valid(data) {
		fmt.Fprintf(os.Stderr, "File contains invalid JSON\n")
		os.Exit(1)
	}

	var gs state.GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse game state: %v\n", err)
		os.Exit(1)
	}

	if err := gs.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	warnings := lint(&gs)
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}

	fmt.Println("Game state is valid!")
}

// lint reports oddities that are legal but usually unintended.
func lint(gs *state.GameState) []string {
	var warnings []string

	if gs.Status != state.ModeCharacterCreation && gs.Character == nil {
		warnings = append(warnings, fmt.Sprintf("no character in mode %s", gs.Status))
	}
	if gs.TotalSegments < len(gs.StoryLog) {
		warnings = append(warnings, fmt.Sprintf("total_segments %d is less than the story log length %d", gs.TotalSegments, len(gs.StoryLog)))
	}
	if len(gs.Companions) > 5 {
		warnings = append(warnings, fmt.Sprintf("party size %d exceeds the cap of 5", len(gs.Companions)))
	}
	if gs.Character != nil {
		for name, level := range gs.Character.Skills {
			if level < 1 {
				warnings = append(warnings, fmt.Sprintf("skill %q has level %d", name, level))
			}
			if gs.SkillPools != nil && gs.SkillPools.PoolOf(name) == "" {
				warnings = append(warnings, fmt.Sprintf("skill %q is not in any skill pool", name))
			}
		}
	}
	if gs.Combat != nil {
		for _, e := range gs.Combat.Enemies {
			if e.HP > e.MaxHP {
				warnings = append(warnings, fmt.Sprintf("enemy %s hp %d exceeds max %d", e.ID, e.HP, e.MaxHP))
			}
		}
	}
	return warnings
}
