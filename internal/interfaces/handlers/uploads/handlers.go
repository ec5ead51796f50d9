package uploads

import (
	uploadsvc "handover-backend/internal/application/uploads"
	"handover-backend/internal/middleware"
	"handover-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

// UploadListingImage POST /api/v1/uploads/listing-image
func (h *Handlers) UploadListingImage(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", fiber.StatusBadRequest, nil)
	}

	res, err := h.Service.SignListingImage(c.UserContext(), actor.UserID, req.FileName)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}

// UploadValuationDoc POST /api/v1/uploads/valuation-doc
func (h *Handlers) UploadValuationDoc(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", fiber.StatusBadRequest, nil)
	}

	res, err := h.Service.SignValuationDoc(c.UserContext(), actor.UserID, req.FileName)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
