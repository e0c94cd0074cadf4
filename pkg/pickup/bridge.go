package pickup

import (
	"sync"
	"time"

	"shoppinglens-be/internal/model"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultThreshold = 0.6
	DefaultDebounce  = 1500 * time.Millisecond

	// UnknownFrameRef is used when the detector does not name the frame.
	UnknownFrameRef = "overshoot://unknown"
)

// Reason explains why a detection was not turned into a pickup event.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInvalidResult     Reason = "invalid_result"
	ReasonPickupNotDetected Reason = "pickup_not_detected"
	ReasonLowConfidence     Reason = "low_confidence"
	ReasonDebounced         Reason = "debounced"
)

// Decision is the outcome of Bridge.Handle: either an Event or a Reason.
type Decision struct {
	Event  *model.PickupEvent
	Reason Reason
}

func (d Decision) Emit() bool {
	return d.Event != nil
}

// Bridge admits raw detector output as pickup events, applying a confidence
// threshold and a per-session debounce window.
type Bridge struct {
	threshold float64
	debounce  time.Duration

	mu       sync.Mutex
	lastSeen *cache.Cache
	now      func() time.Time
}

type Option func(*Bridge)

// WithClock overrides the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		b.now = now
	}
}

func NewBridge(threshold float64, debounce time.Duration, opts ...Option) *Bridge {
	if debounce < 0 {
		debounce = 0
	}
	ttl := debounce
	if ttl == 0 {
		ttl = time.Minute
	}
	b := &Bridge{
		threshold: threshold,
		debounce:  debounce,
		lastSeen:  cache.New(ttl, time.Minute),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handle decodes a detector payload and decides whether it becomes an event.
// It never panics on malformed input.
func (b *Bridge) Handle(sessionID string, raw []byte) Decision {
	out, frameRef, ok := decodeRequest(raw)
	if !ok {
		return Decision{Reason: ReasonInvalidResult}
	}
	if !out.PickupDetected {
		return Decision{Reason: ReasonPickupNotDetected}
	}

	confidence := 1.0
	if out.Confidence != nil {
		confidence = *out.Confidence
		if confidence < b.threshold {
			return Decision{Reason: ReasonLowConfidence}
		}
	}

	if !b.admit(sessionID) {
		return Decision{Reason: ReasonDebounced}
	}

	if frameRef == "" {
		frameRef = UnknownFrameRef
	}
	visible := out.VisibleText
	if visible == nil {
		visible = []string{}
	}

	return Decision{Event: &model.PickupEvent{
		EventID:    uuid.NewString(),
		EventType:  model.EventTypePickupDetected,
		Confidence: confidence,
		FrameRef:   frameRef,
		SearchSeed: model.SearchSeed{
			VisibleText:       visible,
			BrandHint:         out.BrandHint,
			CategoryHint:      out.CategoryHint,
			VisualDescription: out.VisualDescription,
		},
	}}
}

// admit checks and records the last admission time in one critical section.
func (b *Bridge) admit(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if x, found := b.lastSeen.Get(sessionID); found {
		if now.Sub(x.(time.Time)) < b.debounce {
			return false
		}
	}
	b.lastSeen.Set(sessionID, now, cache.DefaultExpiration)
	return true
}

// Reset forgets the debounce state of a session.
func (b *Bridge) Reset(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen.Delete(sessionID)
}
