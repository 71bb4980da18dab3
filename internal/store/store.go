// Package store provides durable persistence for agents, conversations,
// and messages.
package store

import (
	"context"
	"errors"

	"github.com/capitalize-ai/support-chat/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert loses a uniqueness race, e.g. two
// first messages from the same visitor creating a conversation at once.
// Callers treat it as "someone else won; look the row up again".
var ErrConflict = errors.New("conflict")

// AgentStore persists agent configuration.
type AgentStore interface {
	CreateAgent(ctx context.Context, agent *model.Agent) error
	GetAgent(ctx context.Context, id string) (*model.Agent, error)
	IsOwnedBy(ctx context.Context, agentID, tenantID string) (bool, error)
	UpdateTemplate(ctx context.Context, agentID string, tpl model.AntiHallucinationTemplate) error
	UpdateDomains(ctx context.Context, agentID string, domains []string) error
}

// ConversationStore persists conversations. FindLatestByAgentAndVisitor
// must order by updated_at descending so that callers get the
// most-recently-updated conversation when more than one exists.
type ConversationStore interface {
	CreateConversation(ctx context.Context, agentID, visitorID string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	FindLatestByAgentAndVisitor(ctx context.Context, agentID, visitorID string) (*model.Conversation, error)
	TouchConversation(ctx context.Context, id string) error
}

// MessageStore is an append-only log of conversation turns.
type MessageStore interface {
	AppendMessage(ctx context.Context, conversationID, content string, isFromAssistant bool) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}
