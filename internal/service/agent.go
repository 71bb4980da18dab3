package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/support-chat/internal/domainrule"
	"github.com/capitalize-ai/support-chat/internal/model"
	"github.com/capitalize-ai/support-chat/internal/prompt"
	"github.com/capitalize-ai/support-chat/internal/store"
	"github.com/capitalize-ai/support-chat/pkg/logger"
	"github.com/capitalize-ai/support-chat/pkg/metrics"
)

// AgentService handles agent provisioning and guardrail configuration.
type AgentService struct {
	agents      store.AgentStore
	maxDomains  int
	knownModels map[string]bool
	logger      *logger.Logger
}

// NewAgentService creates a new agent service. knownModels is the advisory
// model allow-list, usually the configured provider's Models().
func NewAgentService(agents store.AgentStore, maxDomains int, knownModels []string, log *logger.Logger) *AgentService {
	known := make(map[string]bool, len(knownModels))
	for _, m := range knownModels {
		known[m] = true
	}
	return &AgentService{
		agents:      agents,
		maxDomains:  maxDomains,
		knownModels: known,
		logger:      log,
	}
}

// Create provisions a new agent for a tenant. The template starts from the
// canonical default for the requested intensity. Temperature and top-p are
// assumed pre-validated by the edge; only defaults are filled in here.
func (s *AgentService) Create(ctx context.Context, tenantID string, req *model.CreateAgentRequest) (*model.Agent, error) {
	if req.Name == "" {
		return nil, &ValidationError{Problems: []string{"name is required"}}
	}

	agent := &model.Agent{
		TenantID:     tenantID,
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		CompanyName:  req.CompanyName,
		Model:        req.Model,
		Temperature:  0.7,
		MaxTokens:    1024,
		TopP:         1.0,
		IsActive:     true,
		Template:     prompt.DefaultTemplate(req.Intensity),
	}
	if req.Temperature != nil {
		agent.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		agent.MaxTokens = req.MaxTokens
	}
	if req.TopP != nil {
		agent.TopP = *req.TopP
	}

	if err := s.agents.CreateAgent(ctx, agent); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, &ValidationError{Problems: []string{fmt.Sprintf("agent name %q already exists", req.Name)}}
		}
		return nil, fmt.Errorf("create agent: %w", err)
	}

	s.logger.Info("agent created",
		zap.String("agent_id", agent.ID),
		zap.String("tenant_id", tenantID),
	)
	return agent, nil
}

// Get returns an agent after checking tenant ownership.
func (s *AgentService) Get(ctx context.Context, tenantID, agentID string) (*model.Agent, error) {
	if err := s.checkOwnership(ctx, tenantID, agentID); err != nil {
		return nil, err
	}
	agent, err := s.agents.GetAgent(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAgentNotFound
	}
	return agent, err
}

// UpdateTemplate replaces an agent's anti-hallucination template from a raw
// JSON payload and returns the new risk score. Structurally invalid
// payloads (unknown fields, wrong types) are rejected rather than guessed
// around; an unknown intensity value is accepted and compiles as disabled.
func (s *AgentService) UpdateTemplate(ctx context.Context, tenantID, agentID string, raw json.RawMessage) (int, error) {
	if err := s.checkOwnership(ctx, tenantID, agentID); err != nil {
		return 0, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var tpl model.AntiHallucinationTemplate
	if err := dec.Decode(&tpl); err != nil {
		return 0, &ValidationError{Problems: []string{"malformed template payload: " + err.Error()}}
	}

	if err := s.agents.UpdateTemplate(ctx, agentID, tpl); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrAgentNotFound
		}
		return 0, fmt.Errorf("update template: %w", err)
	}

	return prompt.RiskScore(tpl), nil
}

// UpdateDomains validates and replaces an agent's widget allow-list.
// Structural problems and coverage conflicts both reject the set; the
// stored patterns are the normalized forms.
func (s *AgentService) UpdateDomains(ctx context.Context, tenantID, agentID string, domains []string) error {
	if err := s.checkOwnership(ctx, tenantID, agentID); err != nil {
		return err
	}

	problems := domainrule.Validate(domains, s.maxDomains)
	problems = append(problems, domainrule.FindConflicts(domains)...)
	if len(problems) > 0 {
		metrics.DomainConflictsTotal.Inc()
		return &ValidationError{Problems: problems}
	}

	normalized := make([]string, len(domains))
	for i, d := range domains {
		normalized[i] = domainrule.Normalize(d)
	}

	if err := s.agents.UpdateDomains(ctx, agentID, normalized); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAgentNotFound
		}
		return fmt.Errorf("update domains: %w", err)
	}
	return nil
}

// Risk returns the operator-facing risk advisory for an agent: the template
// risk score plus a flag for models outside the provider's known list. The
// flag never gates chat; acceptable models change independently of this
// service.
func (s *AgentService) Risk(ctx context.Context, tenantID, agentID string) (*model.RiskResponse, error) {
	agent, err := s.Get(ctx, tenantID, agentID)
	if err != nil {
		return nil, err
	}
	return &model.RiskResponse{
		RiskScore:    prompt.RiskScore(agent.Template),
		UnknownModel: agent.Model != "" && !s.knownModels[agent.Model],
	}, nil
}

func (s *AgentService) checkOwnership(ctx context.Context, tenantID, agentID string) error {
	owned, err := s.agents.IsOwnedBy(ctx, agentID, tenantID)
	if err != nil {
		return fmt.Errorf("check ownership: %w", err)
	}
	if !owned {
		// Existence check so a missing agent reads as 404, not 403.
		if _, err := s.agents.GetAgent(ctx, agentID); errors.Is(err, store.ErrNotFound) {
			return ErrAgentNotFound
		}
		return ErrAgentAccess
	}
	return nil
}
