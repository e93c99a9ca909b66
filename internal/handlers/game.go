package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sagaforge/saga-engine/internal/engine"
)

// GameHandler covers the game lifecycle endpoints.
// Routes:
//
//	POST   /v1/games             - create a new game
//	GET    /v1/games?owner={id}  - list an owner's saves
//	GET    /v1/games/{id}        - read a game state
//	DELETE /v1/games/{id}        - delete a game state
// Paths below the game ID are play verbs and are delegated to the
// PlayHandler.
type GameHandler struct {
	engine *engine.Engine
	play   *PlayHandler
	logger *slog.Logger
}

func NewGameHandler(e *engine.Engine, play *PlayHandler, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		engine: e,
		play:   play,
		logger: logger,
	}
}

// CreateGameRequest is the body for POST /v1/games.
type CreateGameRequest struct {
	OwnerID       string `json:"owner_id"`
	StoryGuidance string `json:"story_guidance"`
}

func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")

	if path == "" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Supported methods: POST, GET"})
		}
		return
	}

	idPart, verb, _ := strings.Cut(path, "/")
	id, err := uuid.Parse(idPart)
	if err != nil {
		h.logger.Warn("Invalid game ID", "id", idPart, "error", err)
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid game ID format"})
		return
	}

	if verb != "" {
		h.play.Dispatch(w, r, id, verb)
		return
	}

	switch r.Method {
	case http.MethodGet:
		gs, err := h.engine.GetGame(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, gs)

	case http.MethodDelete:
		if err := h.engine.DeleteGame(r.Context(), id); err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.logger.Debug("Game deleted", "id", id.String())
		w.WriteHeader(http.StatusNoContent)

	default:
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Supported methods: GET, DELETE"})
	}
}

func (h *GameHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}
	if req.OwnerID == "" {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "owner_id field is required"})
		return
	}

	gs, err := h.engine.NewGame(r.Context(), req.OwnerID, req.StoryGuidance)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, gs)
}

func (h *GameHandler) handleList(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "owner query parameter is required"})
		return
	}
	saves, err := h.engine.ListSaves(r.Context(), owner)
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("failed to list saves: %w", err))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, saves)
}
