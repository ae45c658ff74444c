package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/yndnr/streamgate-go/internal/infra/buildinfo"
)

// readyTimeout bounds the storage ping behind /ready.
const readyTimeout = 2 * time.Second

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, &HealthResponse{Status: "ok", Version: buildinfo.Version})
}

// Ready handles GET /ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "error", err)
			h.writeJSON(w, r, http.StatusServiceUnavailable, &HealthResponse{Status: "unavailable", Error: "storage unavailable"})
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, &HealthResponse{Status: "ready"})
}
