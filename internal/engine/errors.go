package engine

import (
	"errors"

	"github.com/sagaforge/saga-engine/internal/services"
	"github.com/sagaforge/saga-engine/pkg/session"
)

var (
	// ErrNotFound means the game or session id is unknown or expired.
	ErrNotFound = errors.New("not found")

	// ErrInvalidMode rejects an operation the current mode does not accept.
	ErrInvalidMode = errors.New("operation not valid in current mode")

	// ErrTerminalState rejects any action on a finished adventure. Only
	// starting a new character is valid past this point.
	ErrTerminalState = errors.New("game is over")

	// ErrMalformedPayload covers request bodies that fail validation
	// before any oracle call is made.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInsufficientGold rejects a purchase or stake beyond the purse.
	ErrInsufficientGold = errors.New("insufficient gold")

	// ErrInsufficientSkillPoints rejects a level-up allocation beyond
	// the unspent pool.
	ErrInsufficientSkillPoints = errors.New("insufficient skill points")

	// ErrOracleUnavailable re-exports the services sentinel so callers
	// depend on one package for the full taxonomy.
	ErrOracleUnavailable = services.ErrOracleUnavailable

	// ErrNotYourTurn re-exports the session sentinel.
	ErrNotYourTurn = session.ErrNotYourTurn
)
