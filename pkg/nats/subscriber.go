package nats

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"shoppinglens-be/internal/pkg/logger"
)

// MessageHandler processes one message. A returned error naks it for redelivery.
type MessageHandler func(ctx context.Context, subject string, data []byte) error

// Subscriber handles listening for messages from NATS.
type Subscriber struct {
	conn   *Conn
	logger logger.ILogger
}

func NewSubscriber(conn *Conn, log logger.ILogger) *Subscriber {
	return &Subscriber{conn: conn, logger: log}
}

// Subscribe registers a handler on a durable consumer so nothing is lost across
// restarts. Consumption stops when ctx is cancelled.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler MessageHandler) error {
	consumer, err := s.conn.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    3,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Subject(), msg.Data()); err != nil {
			s.logger.Error("NATS", "Handler failed", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
	}()

	s.logger.Info("NATS", "Subscribed", map[string]interface{}{"subject": subject, "durable": durableName})
	return nil
}

// LastToken returns the final dot-separated token of a subject.
func LastToken(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
