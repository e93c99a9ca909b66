package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sagaforge/saga-engine/internal/engine"
	"github.com/sagaforge/saga-engine/pkg/session"
)

// SessionHandler covers the multiplayer session endpoints.
// Routes:
//
//	POST /v1/sessions               - create a session
//	GET  /v1/sessions/{id}          - read a session
//	POST /v1/sessions/{id}/join     - join the roster
//	POST /v1/sessions/{id}/ready    - set readiness
//	POST /v1/sessions/{id}/advance  - move the lifecycle forward (host only)
//	POST /v1/sessions/{id}/action   - take the current player's turn
type SessionHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewSessionHandler(e *engine.Engine, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		engine: e,
		logger: logger,
	}
}

// CreateSessionRequest is the body for POST /v1/sessions.
type CreateSessionRequest struct {
	Host          session.Player `json:"host"`
	StoryGuidance string         `json:"story_guidance"`
}

// JoinSessionRequest adds a player to a session.
type JoinSessionRequest struct {
	Player session.Player `json:"player"`
}

// ReadyRequest flips a player's readiness flag.
type ReadyRequest struct {
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
}

// AdvanceRequest moves the session to the named status.
type AdvanceRequest struct {
	PlayerID string         `json:"player_id"`
	To       session.Status `json:"to"`
}

// SessionActionRequest is one player's turn input.
type SessionActionRequest struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")

	if path == "" {
		if r.Method != http.MethodPost {
			writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Supported methods: POST"})
			return
		}
		h.handleCreate(w, r)
		return
	}

	idPart, verb, _ := strings.Cut(path, "/")
	id, err := uuid.Parse(idPart)
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", idPart, "error", err)
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid session ID format"})
		return
	}

	if verb == "" {
		if r.Method != http.MethodGet {
			writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Supported methods: GET"})
			return
		}
		s, err := h.engine.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, h.logger, http.StatusOK, s)
		return
	}

	if r.Method != http.MethodPost {
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Supported methods: POST"})
		return
	}

	var s *session.Session
	switch verb {
	case "join":
		var req JoinSessionRequest
		if !h.decode(w, r, &req) {
			return
		}
		s, err = h.engine.JoinSession(r.Context(), id, req.Player)

	case "ready":
		var req ReadyRequest
		if !h.decode(w, r, &req) {
			return
		}
		s, err = h.engine.ReadySession(r.Context(), id, req.PlayerID, req.Ready)

	case "advance":
		var req AdvanceRequest
		if !h.decode(w, r, &req) {
			return
		}
		s, err = h.engine.AdvanceSession(r.Context(), id, req.PlayerID, req.To)

	case "action":
		var req SessionActionRequest
		if !h.decode(w, r, &req) {
			return
		}
		s, err = h.engine.SubmitSessionAction(r.Context(), id, req.PlayerID, req.Text)

	default:
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Unknown action: " + verb})
		return
	}

	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}
	if req.Host.ID == "" {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "host.id field is required"})
		return
	}

	s, err := h.engine.CreateSession(r.Context(), req.Host, req.StoryGuidance)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, s)
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON in request body"})
		return false
	}
	return true
}
