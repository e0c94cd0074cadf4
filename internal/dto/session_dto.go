package dto

import (
	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/repository/memory"
)

const (
	StatusAccepted = "accepted"
	StatusIgnored  = "ignored"
	StatusEnded    = "ended"
)

type PickupRequest = model.PickupEvent

// WebhookPickupRequest is the envelope used by detectors that post on behalf
// of a session.
type WebhookPickupRequest struct {
	SessionID string             `json:"session_id" validate:"required"`
	Event     *model.PickupEvent `json:"event" validate:"required"`
}

type QuestionRequest struct {
	Question string `json:"question" validate:"required"`
}

type BuyRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type StatusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type SessionSnapshotResponse = memory.SessionView

// AgentActionResponse carries every payload emitted while an agent action
// ran, so voice tooling can speak them without a stream.
type AgentActionResponse struct {
	Payloads []model.AgentPayload `json:"payloads"`
}
