// Package model defines data structures for the support-chat core.
package model

import (
	"time"
)

// Intensity is an anti-hallucination strictness level.
type Intensity string

const (
	IntensityDisabled    Intensity = "disabled"
	IntensityLight       Intensity = "light"
	IntensityStrict      Intensity = "strict"
	IntensityUltraStrict Intensity = "ultra_strict"
)

// Known reports whether the intensity is one of the four defined levels.
// Anything else is compiled as disabled rather than rejected.
func (i Intensity) Known() bool {
	switch i {
	case IntensityDisabled, IntensityLight, IntensityStrict, IntensityUltraStrict:
		return true
	}
	return false
}

// ContextLimitations are the per-template safeguard toggles.
type ContextLimitations struct {
	StrictBoundaries         bool `json:"strict_boundaries"`
	RejectOutOfScope         bool `json:"reject_out_of_scope"`
	InventionPrevention      bool `json:"invention_prevention"`
	CompetitorMentionAllowed bool `json:"competitor_mention_allowed"`
}

// ResponsePatterns are the canned reply templates. Each may contain the
// company-name placeholder token, substituted at compile time.
type ResponsePatterns struct {
	Refusal     string `json:"refusal"`
	Escalation  string `json:"escalation"`
	Uncertainty string `json:"uncertainty"`
}

// AntiHallucinationTemplate is the declarative guardrail configuration
// attached to an agent. It is stored as an opaque JSON blob by the agent
// store and interpreted only by the prompt compiler.
type AntiHallucinationTemplate struct {
	Enabled            bool               `json:"enabled"`
	Intensity          Intensity          `json:"intensity"`
	Domain             string             `json:"domain"`
	ContextLimitations ContextLimitations `json:"context_limitations"`
	ResponsePatterns   ResponsePatterns   `json:"response_patterns"`
}

// Agent is a tenant-configured assistant persona.
type Agent struct {
	ID           string                    `json:"id"`
	TenantID     string                    `json:"tenant_id"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description,omitempty"`
	SystemPrompt string                    `json:"system_prompt"`
	CompanyName  string                    `json:"company_name"`
	Model        string                    `json:"model"`
	Temperature  float64                   `json:"temperature"`
	MaxTokens    int                       `json:"max_tokens"`
	TopP         float64                   `json:"top_p"`
	IsActive     bool                      `json:"is_active"`
	Template     AntiHallucinationTemplate `json:"template"`
	Domains      []string                  `json:"domains,omitempty"`
	FileRefs     []string                  `json:"file_refs,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// CreateAgentRequest is the request to provision a new agent.
type CreateAgentRequest struct {
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	SystemPrompt string    `json:"system_prompt"`
	CompanyName  string    `json:"company_name"`
	Model        string    `json:"model,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	MaxTokens    int       `json:"max_tokens,omitempty"`
	TopP         *float64  `json:"top_p,omitempty"`
	Intensity    Intensity `json:"intensity,omitempty"`
}

// UpdateDomainsRequest replaces an agent's widget allow-list.
type UpdateDomainsRequest struct {
	Domains []string `json:"domains"`
}

// RiskResponse is the operator-facing risk advisory for an agent.
type RiskResponse struct {
	RiskScore    int  `json:"risk_score"`
	UnknownModel bool `json:"unknown_model"`
}
