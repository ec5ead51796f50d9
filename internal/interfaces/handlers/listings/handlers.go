package listings

import (
	"strings"
	"time"

	listsvc "handover-backend/internal/application/listings"
	"handover-backend/internal/domain"
	"handover-backend/internal/middleware"
	"handover-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *listsvc.Service
}

type createListingRequest struct {
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Category           domain.Category  `json:"category"`
	SubCategory        string           `json:"sub_category"`
	OriginalPrice      *decimal.Decimal `json:"original_price"`
	PurchaseYear       int              `json:"purchase_year"`
	Condition          domain.Condition `json:"condition"`
	ValuationPrice     *decimal.Decimal `json:"valuation_price"`
	ValuationDocURLs   []string         `json:"valuation_doc_urls"`
	City               string           `json:"city"`
	PostalCode         string           `json:"postal_code"`
	CollectionDeadline string           `json:"collection_deadline"`
	ImageURLs          []string         `json:"image_urls"`
}

type editListingRequest struct {
	Title              *string               `json:"title"`
	Description        *string               `json:"description"`
	Category           *domain.Category      `json:"category"`
	SubCategory        *string               `json:"sub_category"`
	OriginalPrice      *decimal.Decimal      `json:"original_price"`
	PurchaseYear       *int                  `json:"purchase_year"`
	Condition          *domain.Condition     `json:"condition"`
	ValuationPrice     *decimal.Decimal      `json:"valuation_price"`
	ValuationDocURLs   []string              `json:"valuation_doc_urls"`
	City               *string               `json:"city"`
	PostalCode         *string               `json:"postal_code"`
	CollectionDeadline *string               `json:"collection_deadline"`
	ImageURLs          []string              `json:"image_urls"`
	Status             *domain.ListingStatus `json:"status"`
	RecipientID        *string               `json:"recipient_id"`
	EstimatedValue     *decimal.Decimal      `json:"estimated_value"`
}

type previewRequest struct {
	Category       domain.Category  `json:"category"`
	Condition      domain.Condition `json:"condition"`
	OriginalPrice  *decimal.Decimal `json:"original_price"`
	PurchaseYear   int              `json:"purchase_year"`
	ValuationPrice *decimal.Decimal `json:"valuation_price"`
	HasDocument    bool             `json:"has_document"`
}

// POST /api/v1/listings/create-listing
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req createListingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.OriginalPrice == nil {
		return response.Error(c, "Missing required field: original_price", fiber.StatusBadRequest, nil)
	}
	var deadline time.Time
	if req.CollectionDeadline != "" {
		d, err := parseDate(req.CollectionDeadline)
		if err != nil {
			return response.Error(c, "Invalid collection_deadline (expected YYYY-MM-DD)", fiber.StatusBadRequest, nil)
		}
		deadline = d
	}

	listing, err := h.Service.CreateListing(c.UserContext(), actor, listsvc.CreateListingInput{
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		SubCategory:        req.SubCategory,
		OriginalPrice:      *req.OriginalPrice,
		PurchaseYear:       req.PurchaseYear,
		Condition:          req.Condition,
		ValuationPrice:     req.ValuationPrice,
		ValuationDocURLs:   req.ValuationDocURLs,
		City:               req.City,
		PostalCode:         req.PostalCode,
		CollectionDeadline: deadline,
		ImageURLs:          req.ImageURLs,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// GET /api/v1/listings/get-listing/:listing_id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing_id format", fiber.StatusBadRequest, nil)
	}
	viewer, _ := middleware.ActorFrom(c)
	listing, err := h.Service.GetListing(c.UserContext(), viewer, listingID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// GET /api/v1/listings/get-public-listings?category=&city=&status=
func (h *Handlers) GetPublicListings(c *fiber.Ctx) error {
	listings, err := h.Service.ListPublic(c.UserContext(), listsvc.PublicFilter{
		Category: domain.Category(c.Query("category")),
		City:     c.Query("city"),
		Status:   domain.ListingStatus(c.Query("status")),
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", listings, fiber.Map{"count": len(listings)})
}

// GET /api/v1/listings/get-my-listings
func (h *Handlers) GetMyListings(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	listings, err := h.Service.ListByOwner(c.UserContext(), actor.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listings fetched successfully", listings, fiber.Map{"count": len(listings)})
}

// GET /api/v1/listings/get-received-donations
func (h *Handlers) GetReceivedDonations(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	listings, err := h.Service.ListReceived(c.UserContext(), actor.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Received donations fetched successfully", listings, fiber.Map{"count": len(listings)})
}

// PUT /api/v1/listings/edit-listing/:listing_id
func (h *Handlers) EditListing(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing_id format", fiber.StatusBadRequest, nil)
	}
	var req editListingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	in := listsvc.UpdateListingInput{
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		SubCategory:      req.SubCategory,
		OriginalPrice:    req.OriginalPrice,
		PurchaseYear:     req.PurchaseYear,
		Condition:        req.Condition,
		ValuationPrice:   req.ValuationPrice,
		ValuationDocURLs: req.ValuationDocURLs,
		City:             req.City,
		PostalCode:       req.PostalCode,
		ImageURLs:        req.ImageURLs,
		Status:           req.Status,
		EstimatedValue:   req.EstimatedValue,
	}
	if req.CollectionDeadline != nil {
		d, err := parseDate(*req.CollectionDeadline)
		if err != nil {
			return response.Error(c, "Invalid collection_deadline (expected YYYY-MM-DD)", fiber.StatusBadRequest, nil)
		}
		in.CollectionDeadline = &d
	}
	if req.RecipientID != nil && strings.TrimSpace(*req.RecipientID) != "" {
		rid, err := uuid.Parse(strings.TrimSpace(*req.RecipientID))
		if err != nil {
			return response.Error(c, "Invalid recipient_id format", fiber.StatusBadRequest, nil)
		}
		in.RecipientID = &rid
	}

	listing, err := h.Service.UpdateListing(c.UserContext(), actor, listingID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing updated successfully", listing, nil)
}

// DELETE /api/v1/listings/delete-listing/:listing_id
func (h *Handlers) DeleteListing(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing_id format", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DeleteListing(c.UserContext(), actor, listingID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing deleted successfully", fiber.Map{"listing_id": listingID}, nil)
}

// POST /api/v1/listings/preview-valuation
func (h *Handlers) PreviewValuation(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.OriginalPrice == nil {
		return response.Error(c, "Missing required field: original_price", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.PreviewValuation(listsvc.PreviewInput{
		Category:       req.Category,
		Condition:      req.Condition,
		OriginalPrice:  *req.OriginalPrice,
		PurchaseYear:   req.PurchaseYear,
		ValuationPrice: req.ValuationPrice,
		HasDocument:    req.HasDocument,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Valuation computed", fiber.Map{
		"estimated_value": res.EstimatedValue.StringFixed(2),
		"is_valuated":     res.IsValuated,
	}, nil)
}

// GET /api/v1/moderation/pending
func (h *Handlers) GetPending(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	listings, err := h.Service.ListPending(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pending listings fetched successfully", listings, fiber.Map{"count": len(listings)})
}

type approvalRequest struct {
	Approved *bool `json:"approved"`
}

// PATCH /api/v1/moderation/set-approval/:listing_id
func (h *Handlers) SetApproval(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	listingID, err := uuid.Parse(c.Params("listing_id"))
	if err != nil {
		return response.Error(c, "Invalid listing_id format", fiber.StatusBadRequest, nil)
	}
	var req approvalRequest
	if err := c.BodyParser(&req); err != nil || req.Approved == nil {
		return response.Error(c, "approved (boolean) is required", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.SetApproval(c.UserContext(), actor, listingID, *req.Approved)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Moderation updated successfully", listing, nil)
}

// parseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
