// Package handlers exposes the engine over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagaforge/saga-engine/internal/engine"
	"github.com/sagaforge/saga-engine/pkg/session"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes a response body with the given status.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps an engine error onto a status code and error body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "status", status)
	} else {
		logger.Warn("Request rejected", "error", err, "status", status)
	}
	writeJSON(w, logger, status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrMalformedPayload),
		errors.Is(err, engine.ErrInsufficientGold),
		errors.Is(err, engine.ErrInsufficientSkillPoints):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidMode),
		errors.Is(err, engine.ErrTerminalState),
		errors.Is(err, session.ErrNotJoinable):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, session.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrOracleUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
