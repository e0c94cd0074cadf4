package pickup

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBridge() (*Bridge, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewBridge(DefaultThreshold, DefaultDebounce, WithClock(clock.Now)), clock
}

func TestHandleDecodesPayloadShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "object result",
			payload: `{"result":{"pickup_detected":true,"confidence":0.9,"visible_text":["Sony"]}}`,
		},
		{
			name:    "string result",
			payload: `{"result":"{\"pickup_detected\":true,\"confidence\":0.9,\"visible_text\":[\"Sony\"]}"}`,
		},
		{
			name:    "double wrapped string",
			payload: `{"result":{"result":"{\"pickup_detected\":true,\"confidence\":0.9,\"visible_text\":[\"Sony\"]}"}}`,
		},
		{
			name:    "string wrapping a wrapper",
			payload: `{"result":"{\"result\":{\"pickup_detected\":true,\"confidence\":0.9,\"visible_text\":[\"Sony\"]}}"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge, _ := newTestBridge()
			decision := bridge.Handle("s1", []byte(tt.payload))

			require.True(t, decision.Emit(), "reason: %s", decision.Reason)
			assert.Equal(t, []string{"Sony"}, decision.Event.SearchSeed.VisibleText)
			assert.Equal(t, 0.9, decision.Event.Confidence)
		})
	}
}

func TestHandleRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Reason
	}{
		{"not json", `nope`, ReasonInvalidResult},
		{"missing result", `{"frame_ref":"f1"}`, ReasonInvalidResult},
		{"garbage string result", `{"result":"not json at all"}`, ReasonInvalidResult},
		{"result is a number", `{"result":42}`, ReasonInvalidResult},
		{"too deeply wrapped", `{"result":{"result":{"result":{"pickup_detected":true}}}}`, ReasonInvalidResult},
		{"no pickup", `{"result":{"pickup_detected":false,"confidence":0.99}}`, ReasonPickupNotDetected},
		{"pickup flag missing", `{"result":{"confidence":0.99}}`, ReasonPickupNotDetected},
		{"low confidence", `{"result":{"pickup_detected":true,"confidence":0.59}}`, ReasonLowConfidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge, _ := newTestBridge()
			decision := bridge.Handle("s1", []byte(tt.payload))

			assert.False(t, decision.Emit())
			assert.Nil(t, decision.Event)
			assert.Equal(t, tt.want, decision.Reason)
		})
	}
}

func TestHandleMissingConfidenceIsAdmitted(t *testing.T) {
	bridge, _ := newTestBridge()

	decision := bridge.Handle("s1", []byte(`{"result":{"pickup_detected":true,"confidence":"high"}}`))

	require.True(t, decision.Emit())
	assert.Equal(t, 1.0, decision.Event.Confidence)
}

func TestHandleBuildsEvent(t *testing.T) {
	bridge, _ := newTestBridge()

	decision := bridge.Handle("s1", []byte(`{"frame_ref":"frame-7","result":{"pickup_detected":true,"confidence":0.8,"brand_hint":"Sony","category_hint":"headphones"}}`))

	require.True(t, decision.Emit())
	ev := decision.Event
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "PICKUP_DETECTED", ev.EventType)
	assert.Equal(t, "frame-7", ev.FrameRef)
	assert.Equal(t, []string{}, ev.SearchSeed.VisibleText)
	assert.Equal(t, "Sony", ev.SearchSeed.BrandHint)
	assert.Equal(t, "headphones", ev.SearchSeed.CategoryHint)

	other := bridge.Handle("s2", []byte(`{"result":{"pickup_detected":true}}`))
	require.True(t, other.Emit())
	assert.Equal(t, UnknownFrameRef, other.Event.FrameRef)
	assert.NotEqual(t, ev.EventID, other.Event.EventID)
}

func TestHandleDebouncePerSession(t *testing.T) {
	bridge, clock := newTestBridge()
	payload := []byte(`{"result":{"pickup_detected":true,"confidence":0.9}}`)

	require.True(t, bridge.Handle("s1", payload).Emit())

	clock.Advance(time.Second)
	assert.Equal(t, ReasonDebounced, bridge.Handle("s1", payload).Reason)
	assert.True(t, bridge.Handle("s2", payload).Emit(), "other sessions are independent")

	clock.Advance(600 * time.Millisecond)
	assert.True(t, bridge.Handle("s1", payload).Emit())
}

func TestHandleRejectedDetectionsDoNotArmDebounce(t *testing.T) {
	bridge, _ := newTestBridge()

	bridge.Handle("s1", []byte(`{"result":{"pickup_detected":true,"confidence":0.1}}`))
	decision := bridge.Handle("s1", []byte(`{"result":{"pickup_detected":true,"confidence":0.9}}`))

	assert.True(t, decision.Emit())
}

func TestReset(t *testing.T) {
	bridge, _ := newTestBridge()
	payload := []byte(`{"result":{"pickup_detected":true}}`)

	require.True(t, bridge.Handle("s1", payload).Emit())
	bridge.Reset("s1")
	assert.True(t, bridge.Handle("s1", payload).Emit())
}

func TestHandleConcurrentReentryAdmitsOnce(t *testing.T) {
	bridge, _ := newTestBridge()
	payload := []byte(`{"result":{"pickup_detected":true,"confidence":0.9}}`)

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if bridge.Handle("s1", payload).Emit() {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted)
}
