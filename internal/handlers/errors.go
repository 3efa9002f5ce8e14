package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/middleware"
	"github.com/spothole/spothole-api/internal/models"
	"github.com/spothole/spothole-api/internal/services"
)

const serverErrorMessage = "Server Error"

// respondError maps service errors to status codes. Anything unexpected is
// logged with full detail and answered with a generic 500.
func respondError(c *fiber.Ctx, err error, action string, attrs ...any) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(verr.Message))
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized"))
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.Fail("User not found"))
	case services.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(dto.Fail("Pothole not found"))
	}

	return respondErrorMessage(c, err, action, serverErrorMessage, attrs...)
}

// respondErrorMessage logs err and answers 500 with message.
func respondErrorMessage(c *fiber.Ctx, err error, action, message string, attrs ...any) error {
	args := append([]any{
		"action", action,
		"error", err.Error(),
		"request_id", requestID(c),
		"method", c.Method(),
		"path", c.Path(),
		"latency_ms", middleware.Elapsed(c).Milliseconds(),
	}, attrs...)
	slog.Error("request failed", args...)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail(message))
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(message))
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
