package service

import (
	"context"
	"sync"

	"shoppinglens-be/internal/model"
)

type collectorKey struct{}

// PayloadCollector records every payload the orchestrator emits while
// handling a request whose context carries it. Broadcasting is unaffected.
type PayloadCollector struct {
	mu       sync.Mutex
	payloads []model.AgentPayload
}

// WithPayloadCollector returns a context that makes the orchestrator copy
// emitted payloads into the returned collector.
func WithPayloadCollector(ctx context.Context) (context.Context, *PayloadCollector) {
	c := &PayloadCollector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

func collectorFrom(ctx context.Context) *PayloadCollector {
	c, _ := ctx.Value(collectorKey{}).(*PayloadCollector)
	return c
}

func (c *PayloadCollector) add(payload model.AgentPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

// Payloads returns what has been collected so far, in emit order.
func (c *PayloadCollector) Payloads() []model.AgentPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.AgentPayload, len(c.payloads))
	copy(out, c.payloads)
	return out
}
