package voice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
)

func TestParseQuestion(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		ok      bool
	}{
		{"  is it noise cancelling?  ", "is it noise cancelling?", true},
		{`{"type":"question","question":" battery life? "}`, "battery life?", true},
		{`{"type":"UserQuestion","text":"price?"}`, "price?", true},
		{`{"question":"no type"}`, "no type", true},
		{`{"type":"transcript","text":"ignored"}`, "", false},
		{`{"type":"question","question":"   "}`, "", false},
		{`{"type":"question"`, "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, ok := ParseQuestion(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("key", "secret", time.Minute)
	token, err := issuer.Issue("session-1", "user-1", "Alex")
	require.NoError(t, err)

	claims := &RoomClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, "key", claims.Issuer)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Alex", claims.Name)
	assert.Equal(t, VideoGrant{Room: "session-1", RoomJoin: true, CanPublish: true, CanSubscribe: true, CanPublishData: true}, claims.Video)

	_, err = NewTokenIssuer("", "", 0).Issue("r", "i", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRoomPublisher(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, RoomChannel("s1"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	p := NewRoomPublisher(rdb, logger.NewNopLogger())
	n, err := p.Publish(ctx, "s1", model.NewInfo("s1", "t1", "hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	select {
	case msg := <-sub.Channel():
		assert.JSONEq(t, `{"type":"Info","session_id":"s1","thread_id":"t1","message":"hello"}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("payload not received")
	}
}

func TestQuestionListener(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	got := map[string]string{}
	handler := func(_ context.Context, sessionID, question string) error {
		mu.Lock()
		defer mu.Unlock()
		got[sessionID] = question
		return nil
	}

	l := NewQuestionListener(rdb, handler, logger.NewNopLogger())
	done := make(chan error, 1)
	go func() { done <- l.Listen(ctx) }()

	require.Eventually(t, func() bool {
		n, _ := rdb.Publish(ctx, QuestionChannel("s1"), `{"type":"question","question":"is it waterproof"}`).Result()
		return n > 0
	}, 2*time.Second, 20*time.Millisecond)
	rdb.Publish(ctx, QuestionChannel("s2"), `{"type":"status","text":"ignored"}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got["s1"] == "is it waterproof"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	_, seen := got["s2"]
	assert.False(t, seen)
}
