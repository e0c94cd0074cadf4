package nats

import (
	"context"
	"fmt"

	"shoppinglens-be/pkg/events"
)

// Publisher handles sending events to the NATS bus.
type Publisher struct {
	conn *Conn
}

func NewPublisher(conn *Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Publish sends a lifecycle event to shopping.events.<TYPE>.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return p.PublishRaw(ctx, EventSubject(event.EventType()), data)
}

// PublishRaw sends bytes as-is, e.g. detector output to a detection subject.
func (p *Publisher) PublishRaw(ctx context.Context, subject string, data []byte) error {
	if _, err := p.conn.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

func EventSubject(eventType string) string {
	return EventSubjectPrefix + eventType
}

func DetectionSubject(sessionID string) string {
	return DetectionSubjectPrefix + sessionID
}
