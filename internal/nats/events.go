package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/support-chat/internal/model"
)

const (
	// StreamName is the name of the chat-turn event stream.
	StreamName = "SUPPORT_CHAT"

	// SubjectPrefix is the prefix for all chat event subjects.
	SubjectPrefix = "chat"
)

// EventPublisher publishes chat-turn events to JetStream so downstream
// consumers (dashboards, billing) can follow the turn feed without polling
// the store. The durable record of turns lives in the store; this feed is
// notification only.
type EventPublisher struct {
	client *Client
}

// NewEventPublisher creates a new event publisher.
func NewEventPublisher(client *Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// EnsureStream ensures the event stream exists with proper configuration.
func (p *EventPublisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Chat turn events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for a turn event.
func TurnSubject(tenantID, agentID string, eventType model.TurnEventType) string {
	return fmt.Sprintf("%s.%s.%s.turn.%s", SubjectPrefix, tenantID, agentID, eventType)
}

// PublishTurnEvent publishes a turn event to JetStream.
func (p *EventPublisher) PublishTurnEvent(ctx context.Context, event *model.TurnEvent) (uint64, error) {
	subject := TurnSubject(event.TenantID, event.AgentID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := p.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}
