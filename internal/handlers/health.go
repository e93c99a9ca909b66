package handlers

import (
	"log/slog"
	"net/http"

	"github.com/sagaforge/saga-engine/internal/storage"
)

// HealthHandler reports service liveness and storage reachability.
type HealthHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func NewHealthHandler(storage storage.Storage, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
		return
	}

	resp := healthResponse{Status: "ok", Storage: "ok"}
	status := http.StatusOK
	if err := h.storage.Ping(r.Context()); err != nil {
		h.logger.Error("Storage ping failed", "error", err)
		resp.Status = "degraded"
		resp.Storage = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, status, resp)
}
