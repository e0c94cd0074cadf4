package service

import (
	"context"
	"encoding/json"

	"shoppinglens-be/internal/metrics"
	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
)

// IBroadcastService delivers payloads to everyone listening on a session.
// It never fails back into the caller.
type IBroadcastService interface {
	Broadcast(ctx context.Context, sessionID string, payload model.AgentPayload)
}

// StreamDelivery is typically implemented by the WebSocket Hub.
type StreamDelivery interface {
	Publish(ctx context.Context, sessionID string, data []byte) int
}

// RoomDelivery is typically implemented by the voice room publisher.
type RoomDelivery interface {
	Publish(ctx context.Context, sessionID string, payload model.AgentPayload) (int64, error)
}

type broadcastService struct {
	stream StreamDelivery
	room   RoomDelivery
	logger logger.ILogger
}

// NewBroadcastService fans out to the stream and, when room is non-nil, to
// the voice room.
func NewBroadcastService(stream StreamDelivery, room RoomDelivery, log logger.ILogger) IBroadcastService {
	return &broadcastService{stream: stream, room: room, logger: log}
}

func (s *broadcastService) Broadcast(ctx context.Context, sessionID string, payload model.AgentPayload) {
	payloadType := string(payload.Meta().Type)

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Broadcast", "Failed to marshal payload", map[string]interface{}{
			"session_id": sessionID,
			"type":       payloadType,
			"error":      err.Error(),
		})
		return
	}

	sockets := s.stream.Publish(ctx, sessionID, data)
	metrics.PayloadsBroadcast.WithLabelValues(payloadType, "websocket").Inc()
	s.logger.Debug("Broadcast", "Payload streamed", map[string]interface{}{
		"session_id": sessionID,
		"type":       payloadType,
		"sockets":    sockets,
	})

	if s.room == nil {
		return
	}
	if _, err := s.room.Publish(ctx, sessionID, payload); err != nil {
		s.logger.Warn("Broadcast", "Voice room publish failed", map[string]interface{}{
			"session_id": sessionID,
			"type":       payloadType,
			"error":      err.Error(),
		})
		return
	}
	metrics.PayloadsBroadcast.WithLabelValues(payloadType, "voice").Inc()
}
