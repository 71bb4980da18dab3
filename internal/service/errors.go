package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds the handlers map onto HTTP statuses. These are the only errors
// whose identity leaves the service layer; everything else propagates
// wrapped and is surfaced generically.
var (
	// ErrAgentNotFound is returned when the referenced agent does not exist.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentInactive is returned when the agent exists but is disabled.
	// Surfaced distinctly so the caller can explain why chat is unavailable.
	ErrAgentInactive = errors.New("agent is inactive")

	// ErrAgentAccess is returned when the caller is not the owning tenant.
	ErrAgentAccess = errors.New("agent access denied")

	// ErrInvalidConversation is returned when a supplied conversation id
	// does not exist or belongs to a different agent. A caller-supplied id
	// is never silently redirected to another conversation.
	ErrInvalidConversation = errors.New("invalid conversation")
)

// ProviderError wraps an LLM provider failure (transport, quota, timeout,
// content policy). The user turn stays persisted, so a caller retry of the
// same logical turn loses no context.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ValidationError carries field-level problems caught before persistence,
// e.g. domain allow-list conflicts or a malformed template payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}
