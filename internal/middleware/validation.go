package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates an inbound chat message.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("message cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateVisitorID validates the caller-chosen visitor identifier. It is
// opaque, so only size and encoding are checked.
func ValidateVisitorID(id string) error {
	if len(id) == 0 {
		return errors.New("visitorId cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("visitorId exceeds maximum length")
	}
	if !utf8.ValidString(id) {
		return errors.New("visitorId must be valid UTF-8")
	}
	return nil
}

// ValidateAgentID validates an agent ID.
func ValidateAgentID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid agent ID format")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}
