package state

// Mode is the interaction mode driving which operations a game state
// accepts and which sub-state may be populated.
type Mode string

const (
	ModeInitialLoad        Mode = "initial_load"
	ModeCharacterCreation  Mode = "character_creation"
	ModeCharacterCustomize Mode = "character_customize"
	ModePlaying            Mode = "playing"
	ModeCombat             Mode = "combat"
	ModeLooting            Mode = "looting"
	ModeTransaction        Mode = "transaction"
	ModeGambling           Mode = "gambling"
	ModeLevelUp            Mode = "level_up"
	ModeGameOver           Mode = "game_over"
)

// transitions is the complete legal edge set. Absence means the
// transition is rejected. gameOver has no outgoing edges.
var transitions = map[Mode][]Mode{
	ModeInitialLoad:        {ModeCharacterCreation},
	ModeCharacterCreation:  {ModeCharacterCustomize},
	ModeCharacterCustomize: {ModePlaying},
	ModePlaying:            {ModeCombat, ModeTransaction, ModeGambling, ModeLevelUp, ModeGameOver},
	ModeCombat:             {ModeLooting, ModePlaying, ModeGameOver},
	ModeLooting:            {ModePlaying},
	ModeTransaction:        {ModePlaying},
	ModeGambling:           {ModePlaying},
	ModeLevelUp:            {ModePlaying},
	ModeGameOver:           {},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Mode) bool {
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the mode has no outgoing edges.
func (m Mode) IsTerminal() bool {
	return len(transitions[m]) == 0 && m.Valid()
}

// Valid reports whether the mode is a known member of the state machine.
func (m Mode) Valid() bool {
	_, ok := transitions[m]
	return ok
}
