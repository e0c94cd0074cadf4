package handler

import (
	"strings"

	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/internal/pkg/serverutils"
	"shoppinglens-be/internal/service"
	internalWS "shoppinglens-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type StreamHandler struct {
	hub         *internalWS.Hub
	broadcaster service.IBroadcastService
	logger      logger.ILogger
}

func NewStreamHandler(hub *internalWS.Hub, broadcaster service.IBroadcastService, log logger.ILogger) *StreamHandler {
	return &StreamHandler{
		hub:         hub,
		broadcaster: broadcaster,
		logger:      log,
	}
}

type debugInfoRequest struct {
	Message string `json:"message" validate:"required"`
}

// ServeWs upgrades the request and streams every payload of the session
// named by the sessionId query parameter.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	sessionID := strings.TrimSpace(c.Query("sessionId"))
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("StreamHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(h.hub, conn, sessionID)
		h.logger.Info("StreamHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
	})(c)
}

// DebugInfo pushes a free-form Info payload to a session's listeners.
func (h *StreamHandler) DebugInfo(c *fiber.Ctx) error {
	sessionID := strings.TrimSpace(c.Params("sessionId"))
	if sessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing sessionId")
	}

	var req debugInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing message")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	h.broadcaster.Broadcast(c.UserContext(), sessionID, model.NewInfo(sessionID, "", req.Message))
	return c.JSON(serverutils.SuccessResponse("Broadcast queued", fiber.Map{
		"listeners": h.hub.ConnectionCount(sessionID),
	}))
}

func (h *StreamHandler) RegisterRoutes(app fiber.Router, api fiber.Router) {
	app.Get("/ws", h.ServeWs)

	debug := api.Group("/debug/v1")
	debug.Post(":sessionId/info", h.DebugInfo)
}
