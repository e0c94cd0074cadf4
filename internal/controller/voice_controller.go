package controller

import (
	"strings"

	"shoppinglens-be/internal/config"
	"shoppinglens-be/internal/dto"
	"shoppinglens-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

// TokenIssuer signs participant tokens for a voice room.
type TokenIssuer interface {
	Configured() bool
	Issue(room, identity, name string) (string, error)
}

type IVoiceController interface {
	RegisterRoutes(r fiber.Router)
	GetConfig(ctx *fiber.Ctx) error
	IssueToken(ctx *fiber.Ctx) error
	GetDetectorConfig(ctx *fiber.Ctx) error
}

type voiceController struct {
	voice    config.VoiceConfig
	detector config.DetectorConfig
	issuer   TokenIssuer
}

func NewVoiceController(voice config.VoiceConfig, detector config.DetectorConfig, issuer TokenIssuer) IVoiceController {
	return &voiceController{voice: voice, detector: detector, issuer: issuer}
}

func (c *voiceController) RegisterRoutes(r fiber.Router) {
	v := r.Group("/voice/v1")
	v.Get("config", c.GetConfig)
	v.Post("token", c.IssueToken)

	d := r.Group("/detector/v1")
	d.Get("config", c.GetDetectorConfig)
}

func (c *voiceController) GetConfig(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Voice config", dto.VoiceConfigResponse{
		Host:      c.voice.Host,
		AgentName: c.voice.AgentName,
	}))
}

func (c *voiceController) IssueToken(ctx *fiber.Ctx) error {
	if c.voice.Host == "" || c.issuer == nil || !c.issuer.Configured() {
		return fiber.NewError(fiber.StatusBadRequest, "Voice room not configured")
	}

	var req dto.VoiceTokenRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing room or identity")
	}
	req.Room = strings.TrimSpace(req.Room)
	req.Identity = strings.TrimSpace(req.Identity)
	req.Name = strings.TrimSpace(req.Name)
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	token, err := c.issuer.Issue(req.Room, req.Identity, req.Name)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Voice token issued", dto.VoiceTokenResponse{Token: token}))
}

// GetDetectorConfig hands the browser what it needs to call the vision
// detector directly, api key included.
func (c *voiceController) GetDetectorConfig(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Detector config", dto.DetectorConfigResponse{
		APIURL: c.detector.APIURL,
		APIKey: c.detector.APIKey,
		Model:  c.detector.Model,
		Prompt: c.detector.Prompt,
	}))
}
