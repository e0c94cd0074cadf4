package service

import (
	"context"
	"fmt"

	"shoppinglens-be/internal/metrics"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/events"
	"shoppinglens-be/pkg/pickup"
)

// IAdmissionService runs raw detector output through the pickup bridge and
// starts research for admitted pickups.
type IAdmissionService interface {
	Admit(ctx context.Context, sessionID string, raw []byte) (pickup.Decision, error)
}

type admissionService struct {
	bridge       *pickup.Bridge
	orchestrator IOrchestratorService
	events       IEventPublisherService
	logger       logger.ILogger
}

func NewAdmissionService(bridge *pickup.Bridge, orchestrator IOrchestratorService, eventPublisher IEventPublisherService, log logger.ILogger) IAdmissionService {
	return &admissionService{
		bridge:       bridge,
		orchestrator: orchestrator,
		events:       eventPublisher,
		logger:       log,
	}
}

func (s *admissionService) Admit(ctx context.Context, sessionID string, raw []byte) (pickup.Decision, error) {
	decision := s.bridge.Handle(sessionID, raw)
	if !decision.Emit() {
		metrics.AdmissionDecisions.WithLabelValues(string(decision.Reason)).Inc()
		s.logger.Debug("Admission", "Detection ignored", map[string]interface{}{
			"session_id": sessionID,
			"reason":     string(decision.Reason),
		})
		return decision, nil
	}

	metrics.AdmissionDecisions.WithLabelValues("admitted").Inc()
	event := *decision.Event
	s.logger.Info("Admission", "Pickup admitted", map[string]interface{}{
		"session_id": sessionID,
		"event_id":   event.EventID,
		"confidence": event.Confidence,
	})

	if s.events != nil {
		err := s.events.Publish(ctx, events.New(events.PickupAdmitted, map[string]interface{}{
			"session_id": sessionID,
			"event_id":   event.EventID,
			"confidence": event.Confidence,
			"frame_ref":  event.FrameRef,
		}))
		if err != nil {
			s.logger.Warn("Admission", "Lifecycle event not published", map[string]interface{}{"error": err.Error()})
		}
	}

	if err := s.orchestrator.HandlePickup(ctx, sessionID, event); err != nil {
		return decision, fmt.Errorf("handle pickup: %w", err)
	}
	return decision, nil
}
