package model

import (
	"time"
)

// Conversation is one ongoing exchange between a visitor and an agent.
// VisitorID is an opaque caller-chosen string, unique only per agent.
type Conversation struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	VisitorID string    `json:"visitor_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn within a conversation. Immutable once written.
type Message struct {
	ID              string    `json:"id"`
	ConversationID  string    `json:"conversation_id"`
	Content         string    `json:"content"`
	IsFromAssistant bool      `json:"is_from_assistant"`
	CreatedAt       time.Time `json:"created_at"`
}

// ChatRequest is the inbound widget message.
type ChatRequest struct {
	Message        string `json:"message"`
	VisitorID      string `json:"visitorId"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ChatResponse is the reply returned to the widget.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
	TokensUsed     int    `json:"tokensUsed"`
	FilesUsed      int    `json:"filesUsed"`
}
