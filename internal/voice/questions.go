package voice

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"shoppinglens-be/internal/pkg/logger"
)

// QuestionHandler receives a parsed question for a session.
type QuestionHandler func(ctx context.Context, sessionID, question string) error

// QuestionListener turns voice room messages into questions.
type QuestionListener struct {
	rdb     *redis.Client
	handler QuestionHandler
	logger  logger.ILogger
}

func NewQuestionListener(rdb *redis.Client, handler QuestionHandler, log logger.ILogger) *QuestionListener {
	return &QuestionListener{rdb: rdb, handler: handler, logger: log}
}

// Listen blocks until ctx is cancelled. Each question is handled on its own
// goroutine so a long research run does not stall the subscription.
func (l *QuestionListener) Listen(ctx context.Context) error {
	pubsub := l.rdb.PSubscribe(ctx, questionChannelPrefix+"*")
	defer pubsub.Close()

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	l.logger.Info("Voice", "Listening for voice questions", map[string]interface{}{"pattern": questionChannelPrefix + "*"})

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			sessionID := strings.TrimPrefix(msg.Channel, questionChannelPrefix)
			question, ok := ParseQuestion(msg.Payload)
			if sessionID == "" || !ok {
				continue
			}
			go l.dispatch(ctx, sessionID, question)
		}
	}
}

func (l *QuestionListener) dispatch(ctx context.Context, sessionID, question string) {
	if err := l.handler(ctx, sessionID, question); err != nil {
		l.logger.Error("Voice", "Voice question failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// ParseQuestion accepts plain text or a JSON object
// {"type":"question"|"userquestion","question"|"text":...}. Objects of any
// other type are ignored.
func ParseQuestion(payload string) (string, bool) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return "", false
	}
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, true
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return "", false
	}
	if kind, ok := data["type"].(string); ok && kind != "" {
		switch strings.ToLower(kind) {
		case "question", "userquestion":
		default:
			return "", false
		}
	}
	for _, key := range []string{"question", "text"} {
		if s, ok := data[key].(string); ok {
			s = strings.TrimSpace(s)
			return s, s != ""
		}
	}
	return trimmed, true
}
