package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/metrics"
	"github.com/spothole/spothole-api/internal/models"
	"github.com/spothole/spothole-api/internal/services"
	"github.com/spothole/spothole-api/internal/session"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PotholeHandler struct {
	potholeService *services.PotholeService
	metrics        *metrics.Metrics
}

func NewPotholeHandler(potholeService *services.PotholeService, m *metrics.Metrics) *PotholeHandler {
	return &PotholeHandler{potholeService: potholeService, metrics: m}
}

// List returns every report newest first, or only those inside ?bbox=.
func (h *PotholeHandler) List(c *fiber.Ctx) error {
	var (
		flat []dto.PotholeFlat
		err  error
	)
	if raw := c.Query("bbox"); raw != "" {
		box, perr := models.ParseBoundingBox(raw)
		if perr != nil {
			return badRequest(c, perr.Error())
		}
		flat, err = h.potholeService.ListFlatWithin(c.UserContext(), box)
	} else {
		flat, err = h.potholeService.ListFlat(c.UserContext())
	}
	if err != nil {
		return respondError(c, err, "list_potholes")
	}
	return c.JSON(dto.OK(flat))
}

func (h *PotholeHandler) Create(c *fiber.Ctx) error {
	var req dto.CreatePotholeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	var reporter *primitive.ObjectID
	if ident := session.Optional(c); ident != nil {
		if oid, err := primitive.ObjectIDFromHex(ident.UserID); err == nil {
			reporter = &oid
		}
	}

	p, err := h.potholeService.Create(c.UserContext(), &req, reporter)
	if err != nil {
		return respondError(c, err, "create_pothole")
	}
	if h.metrics != nil {
		h.metrics.PotholesCreated.Inc()
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(p))
}

func (h *PotholeHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	flat, err := h.potholeService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "get_pothole", "pothole_id", id)
	}
	return c.JSON(dto.OK(flat))
}
