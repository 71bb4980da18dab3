package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/support-chat/internal/llm"
	"github.com/capitalize-ai/support-chat/internal/model"
	"github.com/capitalize-ai/support-chat/internal/prompt"
	"github.com/capitalize-ai/support-chat/internal/store"
	"github.com/capitalize-ai/support-chat/pkg/logger"
	"github.com/capitalize-ai/support-chat/pkg/metrics"
)

// EventPublisher publishes chat-turn events to the event feed.
type EventPublisher interface {
	PublishTurnEvent(ctx context.Context, event *model.TurnEvent) (uint64, error)
}

// ChatService is the entry point that turns one inbound visitor message
// into one persisted turn and one model response.
type ChatService struct {
	agents          store.AgentStore
	messages        store.MessageStore
	conversations   store.ConversationStore
	resolver        *ConversationResolver
	llmClient       llm.Client
	events          EventPublisher
	providerTimeout time.Duration
	logger          *logger.Logger
}

// NewChatService creates a new chat service. events may be nil when no
// event feed is configured.
func NewChatService(
	agents store.AgentStore,
	conversations store.ConversationStore,
	messages store.MessageStore,
	llmClient llm.Client,
	events EventPublisher,
	providerTimeout time.Duration,
	log *logger.Logger,
) *ChatService {
	if providerTimeout <= 0 {
		providerTimeout = 60 * time.Second
	}
	return &ChatService{
		agents:          agents,
		messages:        messages,
		conversations:   conversations,
		resolver:        NewConversationResolver(conversations),
		llmClient:       llmClient,
		events:          events,
		providerTimeout: providerTimeout,
		logger:          log,
	}
}

// HandleMessage handles one inbound visitor message end to end: load and
// check the agent, resolve the conversation, persist the user turn, compile
// the system prompt, call the provider, persist the reply.
//
// The user turn is persisted before the provider call so a crash mid-call
// still leaves an auditable turn; on provider failure no synthetic
// assistant message is written and a *ProviderError propagates. There is no
// retry here: retrying a non-idempotent generation risks double-charging
// and duplicate replies, so retry policy lives with the provider client.
func (s *ChatService) HandleMessage(ctx context.Context, tenantID, agentID, visitorID, text, conversationID string) (*model.ChatResponse, error) {
	agent, err := s.agents.GetAgent(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load agent: %w", err)
	}

	// Ownership hook. An empty tenant means the calling layer already
	// authorized the request (e.g. a widget-origin check).
	if tenantID != "" && agent.TenantID != tenantID {
		return nil, ErrAgentAccess
	}

	if !agent.IsActive {
		return nil, ErrAgentInactive
	}

	conv, err := s.resolver.Resolve(ctx, agentID, visitorID, conversationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.messages.AppendMessage(ctx, conv.ID, text, false); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	if err := s.conversations.TouchConversation(ctx, conv.ID); err != nil {
		s.logger.Warn("failed to bump conversation", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	metrics.MessagesTotal.WithLabelValues(agent.TenantID, "user").Inc()

	systemPrompt := prompt.Compile(agent.Template, agent.CompanyName, agent.SystemPrompt)

	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.llmClient.Complete(providerCtx, &llm.CompletionRequest{
		Model:        agent.Model,
		SystemPrompt: systemPrompt,
		UserText:     text,
		MaxTokens:    agent.MaxTokens,
		Temperature:  agent.Temperature,
		TopP:         agent.TopP,
		FileRefs:     agent.FileRefs,
	})
	if err != nil {
		metrics.ChatTurnsTotal.WithLabelValues(agent.TenantID, "provider_error").Inc()
		metrics.RecordLLMRequest(agent.Model, "error", time.Since(start).Seconds(), 0, 0)
		s.publishEvent(ctx, agent, conv.ID, &model.TurnEvent{
			Type:   model.TurnEventFailed,
			Model:  agent.Model,
			Reason: err.Error(),
		})
		s.logger.Error("provider call failed",
			zap.String("agent_id", agent.ID),
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
		return nil, &ProviderError{Provider: s.llmClient.Name(), Err: err}
	}

	if _, err := s.messages.AppendMessage(ctx, conv.ID, resp.Content, true); err != nil {
		return nil, fmt.Errorf("persist assistant message: %w", err)
	}
	if err := s.conversations.TouchConversation(ctx, conv.ID); err != nil {
		s.logger.Warn("failed to bump conversation", zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	metrics.MessagesTotal.WithLabelValues(agent.TenantID, "assistant").Inc()
	metrics.ChatTurnsTotal.WithLabelValues(agent.TenantID, "success").Inc()
	metrics.RecordLLMRequest(resp.Model, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	s.publishEvent(ctx, agent, conv.ID, &model.TurnEvent{
		Type:      model.TurnEventCompleted,
		Model:     resp.Model,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
	})

	return &model.ChatResponse{
		Response:       resp.Content,
		ConversationID: conv.ID,
		TokensUsed:     resp.TokensIn + resp.TokensOut,
		FilesUsed:      len(agent.FileRefs),
	}, nil
}

// publishEvent publishes to the turn feed, best-effort.
func (s *ChatService) publishEvent(ctx context.Context, agent *model.Agent, conversationID string, event *model.TurnEvent) {
	if s.events == nil {
		return
	}
	event.ID = uuid.Must(uuid.NewV7()).String()
	event.TenantID = agent.TenantID
	event.AgentID = agent.ID
	event.ConversationID = conversationID
	event.CreatedAt = time.Now().UTC()

	if _, err := s.events.PublishTurnEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish turn event",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}
}
