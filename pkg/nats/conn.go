package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName = "SHOPPING"

	// DetectionSubjectPrefix + sessionID carries raw detector output.
	DetectionSubjectPrefix = "shopping.detections."
	// EventSubjectPrefix + event type carries lifecycle events.
	EventSubjectPrefix = "shopping.events."
)

// Conn is a NATS connection with its JetStream context.
type Conn struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect dials NATS and makes sure the SHOPPING stream exists.
func Connect(ctx context.Context, url string) (*Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("shoppinglens-be"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"shopping.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}

	return &Conn{nc: nc, js: js}, nil
}

// Close drains the connection.
func (c *Conn) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}
