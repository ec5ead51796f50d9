package messages

import (
	"context"

	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UnreadCount counts unread messages addressed to userID across all threads.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, apperror.Unauthorized("Unauthorized")
	}
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.Message{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		log.Error().Err(err).Msg("messages: unread count failed")
		return 0, apperror.Server("Failed to count unread messages", err)
	}
	return n, nil
}

// MarkThreadRead acknowledges every unread message counterpartyID sent to
// userID in exactly one scope. Other scopes and the opposite direction are
// untouched. Messages inserted after the update runs stay unread. It returns
// the number of messages flipped; repeating the call returns 0.
func (s *Service) MarkThreadRead(ctx context.Context, userID, counterpartyID uuid.UUID, listingID *uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, apperror.Unauthorized("Unauthorized")
	}
	if counterpartyID == uuid.Nil {
		return 0, apperror.Validation("counterparty_id is required")
	}
	q := s.DB.WithContext(ctx).Model(&domain.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = ?", counterpartyID, userID, false)
	res := scoped(q, listingID).Update("is_read", true)
	if res.Error != nil {
		log.Error().Err(res.Error).Msg("messages: mark read failed")
		return 0, apperror.Server("Failed to mark messages as read", res.Error)
	}
	return res.RowsAffected, nil
}
