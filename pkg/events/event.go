package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Lifecycle event types emitted by the orchestrator.
const (
	PickupAdmitted    = "PICKUP_ADMITTED"
	ThreadStarted     = "THREAD_STARTED"
	ResearchCompleted = "RESEARCH_COMPLETED"
	PurchaseRequested = "PURCHASE_REQUESTED"
	SessionEnded      = "SESSION_ENDED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_ENDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the concrete event used across the service.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// New stamps an event with the current time.
func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

type wireEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Marshal encodes an event with its type and timestamp so it survives a hop
// across a message bus.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(wireEvent{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()})
}

func Unmarshal(data []byte) (BaseEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return BaseEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if w.Type == "" {
		return BaseEvent{}, fmt.Errorf("decode event: missing type")
	}
	return BaseEvent{Type: w.Type, Data: w.Data, OccurredAt: w.OccurredAt}, nil
}
