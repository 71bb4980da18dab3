// Package llm provides LLM provider clients behind a neutral interface.
package llm

import (
	"context"
)

// CompletionRequest is one generation call. FileRefs are opaque
// tenant-supplied document references forwarded from the agent
// configuration; whether a provider transmits them is its own concern.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserText     string
	MaxTokens    int
	Temperature  float64
	TopP         float64
	FileRefs     []string
}

// CompletionResponse is the provider's reply plus usage accounting.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers. Implementations own their
// transport-level policy (retries, idempotency keys); callers only bound the
// call with a context deadline.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns the models this provider is known to serve. Advisory
	// only: an agent configured with a model outside this list still chats.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}
