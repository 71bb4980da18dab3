package model

import (
	"time"
)

// TurnEventType classifies chat-turn events published to the event feed.
type TurnEventType string

const (
	TurnEventCompleted TurnEventType = "completed"
	TurnEventFailed    TurnEventType = "failed"
)

// TurnEvent is published to JetStream after each chat turn so downstream
// consumers (dashboards, billing) can follow the feed without polling the
// store. Publishing is best-effort; the chat turn never fails on it.
type TurnEvent struct {
	ID             string        `json:"id"`
	TenantID       string        `json:"tenant_id"`
	AgentID        string        `json:"agent_id"`
	ConversationID string        `json:"conversation_id"`
	Type           TurnEventType `json:"type"`
	Model          string        `json:"model,omitempty"`
	TokensIn       int           `json:"tokens_in,omitempty"`
	TokensOut      int           `json:"tokens_out,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}
