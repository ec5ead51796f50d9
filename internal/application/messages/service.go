// Package messages is the append-only message store plus the views derived
// from it: thread history, read state and the inbox.
package messages

import (
	"context"
	"errors"
	"strings"

	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// SendMessage appends a message. A listing-scoped message must involve the
// listing's owner as one of the two parties.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID uuid.UUID, content string, listingID *uuid.UUID) (*domain.Message, error) {
	if senderID == uuid.Nil {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperror.Validation("Message content is required")
	}
	if recipientID == uuid.Nil {
		return nil, apperror.Validation("recipient_id is required")
	}
	if recipientID == senderID {
		return nil, apperror.Validation("You cannot send a message to yourself")
	}
	if listingID != nil && *listingID == uuid.Nil {
		listingID = nil
	}

	db := s.DB.WithContext(ctx)
	var count int64
	if err := db.Model(&domain.User{}).Where("user_id = ?", recipientID).Count(&count).Error; err != nil {
		log.Error().Err(err).Msg("messages: recipient lookup failed")
		return nil, apperror.Server("Failed to send message", err)
	}
	if count == 0 {
		return nil, apperror.Validation("Recipient not found")
	}

	if listingID != nil {
		var listing domain.Listing
		if err := db.Select("listing_id", "owner_id").Where("listing_id = ?", *listingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.Validation("Listing not found")
			}
			log.Error().Err(err).Msg("messages: listing lookup failed")
			return nil, apperror.Server("Failed to send message", err)
		}
		if listing.OwnerID != senderID && listing.OwnerID != recipientID {
			return nil, apperror.Validation("Messages about a listing must involve its owner")
		}
	}

	msg := &domain.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		ListingID:   listingID,
		Content:     content,
	}
	if err := db.Create(msg).Error; err != nil {
		log.Error().Err(err).Str("sender_id", senderID.String()).Msg("messages: insert failed")
		return nil, apperror.Server("Failed to send message", err)
	}
	return msg, nil
}

// GetThreadHistory returns every message between userID and counterpartyID in
// exactly the given scope, oldest first.
func (s *Service) GetThreadHistory(ctx context.Context, userID, counterpartyID uuid.UUID, listingID *uuid.UUID) ([]domain.Message, error) {
	if userID == uuid.Nil {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	if counterpartyID == uuid.Nil {
		return nil, apperror.Validation("counterparty_id is required")
	}
	q := s.DB.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, counterpartyID, counterpartyID, userID)
	q = scoped(q, listingID)

	history := []domain.Message{}
	if err := q.Order("created_at ASC").Order("message_id ASC").Find(&history).Error; err != nil {
		log.Error().Err(err).Msg("messages: history query failed")
		return nil, apperror.Server("Failed to fetch messages", err)
	}
	return history, nil
}

// scoped restricts q to one scope by exact equality; nil matches only
// general messages.
func scoped(q *gorm.DB, listingID *uuid.UUID) *gorm.DB {
	if listingID == nil {
		return q.Where("listing_id IS NULL")
	}
	return q.Where("listing_id = ?", *listingID)
}
