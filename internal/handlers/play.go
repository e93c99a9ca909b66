package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sagaforge/saga-engine/internal/engine"
	"github.com/sagaforge/saga-engine/pkg/state"
)

// PlayHandler covers the in-game action endpoints, all keyed by game ID:
//
//	POST /v1/games/{id}/character          - generate a character from a concept
//	POST /v1/games/{id}/finalize           - confirm customization and begin play
//	POST /v1/games/{id}/action             - narrative turn
//	POST /v1/games/{id}/combat             - combat turn
//	POST /v1/games/{id}/loot/continue      - leave the loot screen
//	POST /v1/games/{id}/levelup/enter      - open skill allocation
//	POST /v1/games/{id}/levelup/confirm    - spend skill points
//	POST /v1/games/{id}/levelup/cancel     - abandon allocation
//	POST /v1/games/{id}/gamble/enter       - sit down at the table
//	POST /v1/games/{id}/gamble/play        - wager a stake
//	POST /v1/games/{id}/gamble/exit        - walk away
//	POST /v1/games/{id}/transaction        - buy or sell with the vendor
//	POST /v1/games/{id}/transaction/exit   - leave the vendor
//	POST /v1/games/{id}/liquidate          - convert gear to gold at half value
type PlayHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewPlayHandler(e *engine.Engine, logger *slog.Logger) *PlayHandler {
	return &PlayHandler{
		engine: e,
		logger: logger,
	}
}

// ActionRequest carries free-text player input.
type ActionRequest struct {
	Text string `json:"text"`
}

// CharacterRequest is the body for character generation.
type CharacterRequest struct {
	Concept string `json:"concept"`
}

// GambleRequest is the body for a wager.
type GambleRequest struct {
	Text  string `json:"text"`
	Stake int    `json:"stake"`
}

// LevelUpRequest maps skill names to points spent on each.
type LevelUpRequest struct {
	Allocations map[string]int `json:"allocations"`
}

// LiquidateRequest names the gear item to convert to gold.
type LiquidateRequest struct {
	ItemName string `json:"item_name"`
}

// Dispatch routes a play verb for the given game. The verb is the path
// remainder after the game ID, e.g. "levelup/confirm".
func (h *PlayHandler) Dispatch(w http.ResponseWriter, r *http.Request, id uuid.UUID, verb string) {
	if r.Method != http.MethodPost {
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Supported methods: POST"})
		return
	}

	var (
		gs  *state.GameState
		err error
	)

	switch verb {
	case "character":
		var req CharacterRequest
		if !h.decode(w, r, &req) {
			return
		}
		gs, err = h.engine.CreateCharacter(r.Context(), id, req.Concept)

	case "finalize":
		var req engine.FinalizeRequest
		if !h.decode(w, r, &req) {
			return
		}
		gs, err = h.engine.FinalizeCharacter(r.Context(), id, req)

	case "action":
		var req ActionRequest
		if !h.decode(w, r, &req) {
			return
		}
		gs, err = h.engine.SubmitAction(r.Context(), id, req.Text)

	case "combat":
		var req ActionRequest
		if !h.decode(w, r, &req) {
			return
		}
		gs, err = h.engine.SubmitCombatAction(r.Context(), id, req.Text)

	case "loot/continue":
		gs, err = h.engine.ContinueFromLoot(r.Context(), id)

	case "levelup/enter":
		gs, err = h.engine.EnterLevelUp(r.Context(), id)

	case "levelup/confirm":
		var req LevelUpRequest
		if !h.decode(w, r, &req) {
			return
		}
		gs, err = h.engine.ConfirmLevelUp(r.Context(), id, req.Allocations)

	case "levelup/cancel":
		gs, err = h.engine.CancelLevelUp(r.Context(), id)

	case "gamble/enter":
		gs, err = h.engine.EnterGambling(r.Context(), id)

	case "gamble/play":
		var req GambleRequest
		if !h.decode(w, r, &req) {
			return
		}
		gs, err = h.engine.SubmitGamble(r.Context(), id, req.Text, req.Stake)

	case "gamble/exit":
		gs, err = h.engine.ExitGambling(r.Context(), id)

	case "transaction":
		var req engine.TransactionRequest
		if !h.decode(w, r, &req) {
			return
		}
		gs, err = h.engine.PerformTransaction(r.Context(), id, req)

	case "transaction/exit":
		gs, err = h.engine.ExitTransaction(r.Context(), id)

	case "liquidate":
		var req LiquidateRequest
		if !h.decode(w, r, &req) {
			return
		}
		gs, err = h.engine.LiquidateGear(r.Context(), id, req.ItemName)

	default:
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Unknown action: " + verb})
		return
	}

	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs)
}

func (h *PlayHandler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON in request body"})
		return false
	}
	return true
}
