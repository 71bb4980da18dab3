package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/support-chat/internal/middleware"
	"github.com/capitalize-ai/support-chat/internal/model"
	"github.com/capitalize-ai/support-chat/internal/service"
	"github.com/capitalize-ai/support-chat/pkg/logger"
)

// AgentHandler handles agent provisioning and guardrail configuration.
type AgentHandler struct {
	agents *service.AgentService
	logger *logger.Logger
}

// NewAgentHandler creates a new agent handler.
func NewAgentHandler(agents *service.AgentService, log *logger.Logger) *AgentHandler {
	return &AgentHandler{
		agents: agents,
		logger: log,
	}
}

// Create handles POST /api/v1/agents
func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	var req model.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := h.agents.Create(ctx, tenantID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, agent)
}

// Get handles GET /api/v1/agents/{id}
func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateAgentID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	agent, err := h.agents.Get(ctx, tenantID, agentID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, agent)
}

// UpdateTemplate handles PUT /api/v1/agents/{id}/template
func (h *AgentHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateAgentID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64*1024))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	risk, err := h.agents.UpdateTemplate(ctx, tenantID, agentID, raw)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"risk_score": risk})
}

// UpdateDomains handles PUT /api/v1/agents/{id}/domains
func (h *AgentHandler) UpdateDomains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateAgentID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateDomainsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.agents.UpdateDomains(ctx, tenantID, agentID, req.Domains); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Risk handles GET /api/v1/agents/{id}/risk
func (h *AgentHandler) Risk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	agentID := chi.URLParam(r, "id")

	if err := middleware.ValidateAgentID(agentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	risk, err := h.agents.Risk(ctx, tenantID, agentID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, risk)
}
