package voice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
)

const (
	roomChannelPrefix     = "voice:room:"
	questionChannelPrefix = "voice:questions:"
)

// RoomChannel is where the voice agent for a session listens for payloads.
func RoomChannel(sessionID string) string {
	return roomChannelPrefix + sessionID
}

// QuestionChannel is where the voice agent for a session posts questions.
func QuestionChannel(sessionID string) string {
	return questionChannelPrefix + sessionID
}

// RoomPublisher forwards agent payloads to the voice room data channel.
type RoomPublisher struct {
	rdb    *redis.Client
	logger logger.ILogger
}

func NewRoomPublisher(rdb *redis.Client, log logger.ILogger) *RoomPublisher {
	return &RoomPublisher{rdb: rdb, logger: log}
}

// Publish returns the number of voice agents that received the payload.
func (p *RoomPublisher) Publish(ctx context.Context, sessionID string, payload model.AgentPayload) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}
	receivers, err := p.rdb.Publish(ctx, RoomChannel(sessionID), data).Result()
	if err != nil {
		return 0, fmt.Errorf("publish to voice room %s: %w", sessionID, err)
	}
	return receivers, nil
}
