package handler

import (
	"context"
	"net/http"

	natsclient "github.com/capitalize-ai/support-chat/internal/nats"
)

// Pinger reports whether the durable store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *natsclient.Client
	store      Pinger
}

// NewHealthHandler creates a new health handler. natsClient may be nil when
// the event feed is disabled.
func NewHealthHandler(natsClient *natsclient.Client, store Pinger) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		store:      store,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "store not reachable",
		})
		return
	}

	if h.natsClient != nil && !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
