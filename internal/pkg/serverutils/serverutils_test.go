package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Question string `json:"question" validate:"required"`
	Limit    int    `json:"limit" validate:"gte=0,lte=8"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Question: "is it waterproof", Limit: 3}))

	err := ValidateRequest(sampleRequest{Limit: 9})
	var fiberErr *fiber.Error
	require.True(t, errors.As(err, &fiberErr))
	assert.Equal(t, fiber.StatusBadRequest, fiberErr.Code)
	assert.Contains(t, fiberErr.Message, "Question is required")
	assert.Contains(t, fiberErr.Message, "Limit must be at most 8")
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/bad", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "nope")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("exploded")
	})

	cases := map[string]struct {
		code    int
		message string
	}{
		"/bad":  {fiber.StatusBadRequest, "nope"},
		"/boom": {fiber.StatusInternalServerError, "exploded"},
	}
	for path, want := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, want.code, resp.StatusCode)

		var body BaseResponse[any]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Success)
		assert.Equal(t, want.message, body.Message)
	}
}
