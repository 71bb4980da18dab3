// Package service provides business logic for the support-chat core.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/capitalize-ai/support-chat/internal/model"
	"github.com/capitalize-ai/support-chat/internal/store"
	"github.com/capitalize-ai/support-chat/pkg/metrics"
)

// ConversationResolver maps an inbound (agent, visitor, optional
// conversation id) to exactly one conversation, keeping one active
// conversation per visitor per agent.
type ConversationResolver struct {
	conversations store.ConversationStore
}

// NewConversationResolver creates a resolver backed by the given store.
func NewConversationResolver(conversations store.ConversationStore) *ConversationResolver {
	return &ConversationResolver{conversations: conversations}
}

// Resolve returns the single conversation for this turn.
//
// An explicit conversationID must exist and belong to agentID, otherwise
// ErrInvalidConversation: redirecting a supplied id to a different
// conversation would leak one visitor's history into another's session.
// Without an explicit id the most-recently-updated conversation for the
// pair is reused, creating one lazily on first contact. Two racing first
// messages are resolved by the store's uniqueness constraint: the loser
// re-reads the winner's row.
func (r *ConversationResolver) Resolve(ctx context.Context, agentID, visitorID, conversationID string) (*model.Conversation, error) {
	if conversationID != "" {
		conv, err := r.conversations.GetConversation(ctx, conversationID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidConversation
		}
		if err != nil {
			return nil, fmt.Errorf("get conversation: %w", err)
		}
		if conv.AgentID != agentID {
			return nil, ErrInvalidConversation
		}
		return conv, nil
	}

	conv, err := r.conversations.FindLatestByAgentAndVisitor(ctx, agentID, visitorID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	conv, err = r.conversations.CreateConversation(ctx, agentID, visitorID)
	if errors.Is(err, store.ErrConflict) {
		// Lost the creation race. The winner's row is the conversation.
		conv, err = r.conversations.FindLatestByAgentAndVisitor(ctx, agentID, visitorID)
		if err != nil {
			return nil, fmt.Errorf("reselect conversation after race: %w", err)
		}
		return conv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	metrics.ConversationsTotal.WithLabelValues(agentID).Inc()
	return conv, nil
}
