package service

import (
	"context"

	"shoppinglens-be/internal/pkg/logger"
	pktNats "shoppinglens-be/pkg/nats"
)

const detectionDurable = "shoppinglens-detections"

// DetectionSource is typically implemented by the NATS subscriber.
type DetectionSource interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.MessageHandler) error
}

// DetectionConsumerService feeds detector output published on
// shopping.detections.<sessionID> through admission.
type DetectionConsumerService struct {
	source    DetectionSource
	admission IAdmissionService
	logger    logger.ILogger
}

func NewDetectionConsumerService(source DetectionSource, admission IAdmissionService, log logger.ILogger) *DetectionConsumerService {
	return &DetectionConsumerService{source: source, admission: admission, logger: log}
}

// Start begins listening to the detection subjects.
func (s *DetectionConsumerService) Start(ctx context.Context) error {
	return s.source.Subscribe(ctx, pktNats.DetectionSubjectPrefix+"*", detectionDurable, s.handleDetection)
}

func (s *DetectionConsumerService) handleDetection(ctx context.Context, subject string, data []byte) error {
	sessionID := pktNats.LastToken(subject)
	if sessionID == "" {
		return nil
	}

	decision, err := s.admission.Admit(ctx, sessionID, data)
	if err != nil {
		// Research failures are not retried; redelivery would start a new thread.
		s.logger.Error("DetectionConsumer", "Pickup handling failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return nil
	}
	if !decision.Emit() {
		s.logger.Debug("DetectionConsumer", "Detection ignored", map[string]interface{}{
			"session_id": sessionID,
			"reason":     string(decision.Reason),
		})
	}
	return nil
}
