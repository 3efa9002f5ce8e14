package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/metrics"
	"github.com/spothole/spothole-api/internal/services"
	"github.com/spothole/spothole-api/internal/session"
)

type CommentHandler struct {
	commentService *services.CommentService
	metrics        *metrics.Metrics
}

func NewCommentHandler(commentService *services.CommentService, m *metrics.Metrics) *CommentHandler {
	return &CommentHandler{commentService: commentService, metrics: m}
}

// List serves ?page=&limit=; page defaults to 1 and limit to the configured
// page size.
func (h *CommentHandler) List(c *fiber.Ctx) error {
	id := c.Params("id")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 0)

	result, err := h.commentService.List(c.UserContext(), id, page, limit)
	if err != nil {
		return respondError(c, err, "list_comments", "pothole_id", id)
	}
	return c.JSON(dto.CommentListResponse{
		Success: true,
		Data:    result.Items,
		HasMore: result.HasMore,
	})
}

func (h *CommentHandler) Create(c *fiber.Ctx) error {
	id := c.Params("id")
	ident, err := session.Current(c)
	if err != nil {
		return respondError(c, services.ErrUnauthorized, "add_comment")
	}

	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.commentService.Add(c.UserContext(), id, ident, req.Text)
	if err != nil {
		return respondError(c, err, "add_comment", "pothole_id", id, "user_id", ident.UserID)
	}
	if h.metrics != nil {
		h.metrics.CommentsAdded.Inc()
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(item))
}
