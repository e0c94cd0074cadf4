package controller

import (
	"strings"

	"shoppinglens-be/internal/dto"
	"shoppinglens-be/internal/pkg/serverutils"
	"shoppinglens-be/internal/repository/memory"
	"shoppinglens-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Pickup(ctx *fiber.Ctx) error
	Detection(ctx *fiber.Ctx) error
	WebhookPickup(ctx *fiber.Ctx) error
	Question(ctx *fiber.Ctx) error
	Buy(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	AgentAction(ctx *fiber.Ctx) error
}

// SessionReader exposes read-only session snapshots.
type SessionReader interface {
	Snapshot(sessionID string) (memory.SessionView, bool)
}

type sessionController struct {
	orchestrator service.IOrchestratorService
	admission    service.IAdmissionService
	sessions     SessionReader
}

func NewSessionController(orchestrator service.IOrchestratorService, admission service.IAdmissionService, sessions SessionReader) ISessionController {
	return &sessionController{
		orchestrator: orchestrator,
		admission:    admission,
		sessions:     sessions,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions/v1")
	h.Get(":sessionId", c.Show)
	h.Post(":sessionId/pickup", c.Pickup)
	h.Post(":sessionId/detection", c.Detection)
	h.Post(":sessionId/question", c.Question)
	h.Post(":sessionId/buy", c.Buy)
	h.Post(":sessionId/end", c.End)

	w := r.Group("/webhooks/v1")
	w.Post("pickup", c.WebhookPickup)

	a := r.Group("/agent/v1")
	a.Post(":sessionId/:action", c.AgentAction)
}

func sessionParam(ctx *fiber.Ctx) (string, error) {
	sessionID := strings.TrimSpace(ctx.Params("sessionId"))
	if sessionID == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "Missing sessionId")
	}
	return sessionID, nil
}

func (c *sessionController) Pickup(ctx *fiber.Ctx) error {
	sessionID, err := sessionParam(ctx)
	if err != nil {
		return err
	}

	var req dto.PickupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid pickup event")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.orchestrator.HandlePickup(ctx.UserContext(), sessionID, req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pickup accepted", dto.StatusResponse{Status: dto.StatusAccepted}))
}

// Detection accepts raw detector output and lets the admission filter
// decide whether it becomes a pickup.
func (c *sessionController) Detection(ctx *fiber.Ctx) error {
	sessionID, err := sessionParam(ctx)
	if err != nil {
		return err
	}

	decision, err := c.admission.Admit(ctx.UserContext(), sessionID, ctx.Body())
	if err != nil {
		return err
	}
	if !decision.Emit() {
		return ctx.JSON(serverutils.SuccessResponse("Detection ignored", dto.StatusResponse{
			Status: dto.StatusIgnored,
			Reason: string(decision.Reason),
		}))
	}
	return ctx.JSON(serverutils.SuccessResponse("Pickup accepted", dto.StatusResponse{Status: dto.StatusAccepted}))
}

func (c *sessionController) WebhookPickup(ctx *fiber.Ctx) error {
	var req dto.WebhookPickupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid webhook body")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing session_id")
	}
	if req.Event == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid pickup event")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.orchestrator.HandlePickup(ctx.UserContext(), req.SessionID, *req.Event); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pickup accepted", dto.StatusResponse{Status: dto.StatusAccepted}))
}

func (c *sessionController) Question(ctx *fiber.Ctx) error {
	sessionID, err := sessionParam(ctx)
	if err != nil {
		return err
	}

	var req dto.QuestionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing question")
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.orchestrator.HandleQuestion(ctx.UserContext(), sessionID, req.Question); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Question accepted", dto.StatusResponse{Status: dto.StatusAccepted}))
}

func (c *sessionController) Buy(ctx *fiber.Ctx) error {
	sessionID, err := sessionParam(ctx)
	if err != nil {
		return err
	}

	var req dto.BuyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing product_id")
	}
	req.ProductID = strings.TrimSpace(req.ProductID)
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.orchestrator.HandleBuy(ctx.UserContext(), sessionID, req.ProductID); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Purchase accepted", dto.StatusResponse{Status: dto.StatusAccepted}))
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	sessionID, err := sessionParam(ctx)
	if err != nil {
		return err
	}

	if err := c.orchestrator.HandleEnd(ctx.UserContext(), sessionID); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session ended", dto.StatusResponse{Status: dto.StatusEnded}))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	sessionID, err := sessionParam(ctx)
	if err != nil {
		return err
	}

	view, ok := c.sessions.Snapshot(sessionID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	return ctx.JSON(serverutils.SuccessResponse("Session snapshot", dto.SessionSnapshotResponse(view)))
}

// AgentAction runs one orchestrator intent and answers with the payloads it
// emitted. Streams still receive them as usual.
func (c *sessionController) AgentAction(ctx *fiber.Ctx) error {
	sessionID, err := sessionParam(ctx)
	if err != nil {
		return err
	}

	runCtx, collector := service.WithPayloadCollector(ctx.UserContext())

	switch ctx.Params("action") {
	case "pickup":
		var req dto.PickupRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid pickup event")
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
		err = c.orchestrator.HandlePickup(runCtx, sessionID, req)
	case "question":
		var req dto.QuestionRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Missing question")
		}
		req.Question = strings.TrimSpace(req.Question)
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
		err = c.orchestrator.HandleQuestion(runCtx, sessionID, req.Question)
	case "buy":
		var req dto.BuyRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Missing product_id")
		}
		req.ProductID = strings.TrimSpace(req.ProductID)
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
		err = c.orchestrator.HandleBuy(runCtx, sessionID, req.ProductID)
	case "end":
		err = c.orchestrator.HandleEnd(runCtx, sessionID)
	default:
		return fiber.NewError(fiber.StatusNotFound, "Unknown agent action")
	}
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Agent action completed", dto.AgentActionResponse{
		Payloads: collector.Payloads(),
	}))
}
