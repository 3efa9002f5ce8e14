package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/services"
)

type UploadHandler struct {
	uploadService *services.UploadService
}

func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Presign answers {fileType} with a short-lived URL the client PUTs the
// image to directly.
func (h *UploadHandler) Presign(c *fiber.Ctx) error {
	if h.uploadService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.Fail("Uploads are not configured."))
	}

	var req dto.UploadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := dto.Validate(&req); err != nil {
		return badRequest(c, "File type is required.")
	}

	res, err := h.uploadService.Presign(c.UserContext(), req.FileType)
	if err != nil {
		if services.IsValidation(err) {
			return respondError(c, err, "presign_upload")
		}
		return respondErrorMessage(c, err, "presign_upload", "Error creating presigned URL.")
	}
	return c.JSON(res)
}
