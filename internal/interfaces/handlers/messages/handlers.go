package messages

import (
	msgsvc "handover-backend/internal/application/messages"
	"handover-backend/internal/middleware"
	"handover-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *msgsvc.Service
}

type sendMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
	ListingID   string `json:"listing_id"`
}

// POST /api/v1/messages/send-message
func (h *Handlers) SendMessage(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		return response.Error(c, "Invalid recipient_id format", fiber.StatusBadRequest, nil)
	}
	listingID, ok := msgsvc.NormalizeScope(req.ListingID)
	if !ok {
		return response.Error(c, "Invalid listing_id format", fiber.StatusBadRequest, nil)
	}

	msg, err := h.Service.SendMessage(c.UserContext(), actor.UserID, recipientID, req.Content, listingID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Message sent", msg, nil)
}

// GET /api/v1/messages/inbox
func (h *Handlers) GetInbox(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	rows, err := h.Service.GetInbox(c.UserContext(), actor.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Inbox fetched successfully", rows, fiber.Map{"count": len(rows)})
}

// GET /api/v1/messages/unread-count
func (h *Handlers) GetUnreadCount(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	n, err := h.Service.UnreadCount(c.UserContext(), actor.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Unread count fetched successfully", fiber.Map{"unread": n}, nil)
}

// GET /api/v1/messages/thread/:counterparty_id?listing_id=
func (h *Handlers) GetThread(c *fiber.Ctx) error {
	ref, ferr := threadParams(c)
	if ferr != nil {
		return response.Error(c, ferr.Message, ferr.Code, nil)
	}
	history, err := h.Service.GetThreadHistory(c.UserContext(), ref.userID, ref.counterpartyID, ref.listingID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Thread fetched successfully", history, fiber.Map{
		"count":      len(history),
		"thread_key": msgsvc.ThreadKey(ref.counterpartyID, ref.listingID),
	})
}

// PATCH /api/v1/messages/mark-read/:counterparty_id?listing_id=
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	ref, ferr := threadParams(c)
	if ferr != nil {
		return response.Error(c, ferr.Message, ferr.Code, nil)
	}
	n, err := h.Service.MarkThreadRead(c.UserContext(), ref.userID, ref.counterpartyID, ref.listingID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Thread marked as read", fiber.Map{"updated": n}, nil)
}

type threadRef struct {
	userID         uuid.UUID
	counterpartyID uuid.UUID
	listingID      *uuid.UUID
}

// threadParams reads the caller, the counterparty path param and the optional
// listing_id query scope.
func threadParams(c *fiber.Ctx) (threadRef, *fiber.Error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return threadRef{}, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	counterpartyID, err := uuid.Parse(c.Params("counterparty_id"))
	if err != nil {
		return threadRef{}, fiber.NewError(fiber.StatusBadRequest, "Invalid counterparty_id format")
	}
	listingID, ok := msgsvc.NormalizeScope(c.Query("listing_id"))
	if !ok {
		return threadRef{}, fiber.NewError(fiber.StatusBadRequest, "Invalid listing_id format")
	}
	return threadRef{userID: actor.UserID, counterpartyID: counterpartyID, listingID: listingID}, nil
}
