package listingevents

import (
	"context"
	"errors"

	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// GetListingEvents returns the audit trail of a listing, oldest first. Only the
// owner and administrators may read it.
func (s *Service) GetListingEvents(ctx context.Context, actor domain.Actor, listingID uuid.UUID) ([]domain.ListingEvent, error) {
	if listingID == uuid.Nil {
		return nil, apperror.Validation("listing_id is required")
	}

	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Select("listing_id", "owner_id").First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Listing not found")
		}
		log.Error().Err(err).Msg("listingevents: listing lookup failed")
		return nil, apperror.Server("Failed to fetch listing events", err)
	}
	if !actor.CanManage(&listing) {
		return nil, apperror.Forbidden("Only the owner or an administrator can view listing history")
	}

	events := []domain.ListingEvent{}
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at ASC").Order("event_id ASC").Find(&events).Error; err != nil {
		log.Error().Err(err).Msg("listingevents: query failed")
		return nil, apperror.Server("Failed to fetch listing events", err)
	}
	return events, nil
}
