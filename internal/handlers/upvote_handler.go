package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/metrics"
	"github.com/spothole/spothole-api/internal/services"
	"github.com/spothole/spothole-api/internal/session"
)

type UpvoteHandler struct {
	upvoteService *services.UpvoteService
	metrics       *metrics.Metrics
}

func NewUpvoteHandler(upvoteService *services.UpvoteService, m *metrics.Metrics) *UpvoteHandler {
	return &UpvoteHandler{upvoteService: upvoteService, metrics: m}
}

func (h *UpvoteHandler) Toggle(c *fiber.Ctx) error {
	id := c.Params("id")
	ident, err := session.Current(c)
	if err != nil {
		return respondError(c, services.ErrUnauthorized, "toggle_upvote")
	}

	result, err := h.upvoteService.Toggle(c.UserContext(), id, ident)
	if err != nil {
		return respondError(c, err, "toggle_upvote", "pothole_id", id, "user_id", ident.UserID)
	}
	if h.metrics != nil {
		h.metrics.RecordUpvote(result.Added)
	}
	return c.JSON(dto.OK(result))
}
