package listings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"handover-backend/internal/application/emails"
	"handover-backend/internal/application/valuation"
	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"
	"handover-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// errListingGone aborts a write transaction when the row was deleted after it was loaded.
var errListingGone = errors.New("listing deleted concurrently")

// Service owns the listing lifecycle: creation rules, valuation, status
// transitions, moderation and deletion.
type Service struct {
	DB *gorm.DB
	// Clock defaults to time.Now; tests pin it.
	Clock func() time.Time
	// MinDeadlineDays defaults to DefaultMinDeadlineDays when zero.
	MinDeadlineDays int
	// Mailer notifies recipients of donations; nil disables it.
	Mailer emails.Sender
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) minDeadlineDays() int {
	if s.MinDeadlineDays > 0 {
		return s.MinDeadlineDays
	}
	return DefaultMinDeadlineDays
}

type CreateListingInput struct {
	Title              string
	Description        string
	Category           domain.Category
	SubCategory        string
	OriginalPrice      decimal.Decimal
	PurchaseYear       int
	Condition          domain.Condition
	ValuationPrice     *decimal.Decimal
	ValuationDocURLs   []string
	City               string
	PostalCode         string
	CollectionDeadline time.Time
	ImageURLs          []string
}

// CreateListing validates creation rules, computes the initial valuation and
// stores the listing unapproved and available.
func (s *Service) CreateListing(ctx context.Context, actor domain.Actor, in CreateListingInput) (*domain.Listing, error) {
	if actor.UserID == uuid.Nil {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	now := s.now()
	images := validation.CleanStrings(in.ImageURLs)
	docs := validation.CleanStrings(in.ValuationDocURLs)

	checks := []func() error{
		func() error { return validateTitle(in.Title) },
		func() error { return validateCategory(in.Category) },
		func() error { return validateCondition(in.Category, in.Condition) },
		func() error { return validatePrice(in.OriginalPrice) },
		func() error { return validatePurchaseYear(in.PurchaseYear, now) },
		func() error { return validateLocation(in.City, in.PostalCode) },
		func() error { return validateImages(images) },
		func() error { return validateDocURLs(docs) },
		func() error { return validateAntiqueAge(in.Category, in.PurchaseYear, now) },
		func() error { return validateAppraisal(in.ValuationPrice, docs) },
	}
	if !actor.IsAdmin() {
		checks = append(checks, func() error {
			return validateDeadline(in.CollectionDeadline, now, s.minDeadlineDays())
		})
	} else if in.CollectionDeadline.IsZero() {
		return nil, apperror.Validation("Collection deadline is required")
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return nil, err
		}
	}

	listing := &domain.Listing{
		OwnerID:            actor.UserID,
		Title:              strings.TrimSpace(in.Title),
		Description:        strings.TrimSpace(in.Description),
		Category:           in.Category,
		SubCategory:        strings.TrimSpace(in.SubCategory),
		OriginalPrice:      in.OriginalPrice,
		PurchaseYear:       in.PurchaseYear,
		Condition:          in.Condition,
		Status:             domain.StatusAvailable,
		IsApproved:         false,
		City:               strings.TrimSpace(in.City),
		PostalCode:         strings.TrimSpace(in.PostalCode),
		CollectionDeadline: startOfDay(in.CollectionDeadline),
		ImageURLs:          datatypes.NewJSONSlice(images),
		ValuationDocURLs:   datatypes.NewJSONSlice(docs),
	}
	revalue(listing, in.ValuationPrice, now)

	if err := validateHighValue(listing); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if err := validateCeiling(listing); err != nil {
			return nil, err
		}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(listing).Error; err != nil {
			return err
		}
		return recordEvent(tx, listing.ListingID, actor.UserID, domain.EventCreated, map[string]interface{}{
			"estimated_value": listing.EstimatedValue,
			"is_valuated":     listing.IsValuated,
		})
	})
	if err != nil {
		log.Error().Err(err).Str("owner_id", actor.UserID.String()).Msg("listings: create failed")
		return nil, apperror.Server("Failed to create listing", err)
	}
	return listing, nil
}

// UpdateListingInput is a partial update; nil fields are left unchanged.
type UpdateListingInput struct {
	Title              *string
	Description        *string
	Category           *domain.Category
	SubCategory        *string
	OriginalPrice      *decimal.Decimal
	PurchaseYear       *int
	Condition          *domain.Condition
	ValuationPrice     *decimal.Decimal
	ValuationDocURLs   []string
	City               *string
	PostalCode         *string
	CollectionDeadline *time.Time
	ImageURLs          []string
	Status             *domain.ListingStatus
	RecipientID        *uuid.UUID
	// EstimatedValue is honoured for administrators only.
	EstimatedValue *decimal.Decimal
}

// UpdateListing applies a partial edit after re-validating every rule the
// edit touches. Status, recipient and donation time are written in the same
// row update. Concurrent edits are last-write-wins.
func (s *Service) UpdateListing(ctx context.Context, actor domain.Actor, listingID uuid.UUID, in UpdateListingInput) (*domain.Listing, error) {
	current, err := s.loadForMutation(ctx, actor, listingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	admin := actor.IsAdmin()
	draft := *current
	changes := map[string]interface{}{}
	valuationTouched := false

	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return nil, err
		}
		if t := strings.TrimSpace(*in.Title); t != draft.Title {
			draft.Title = t
			changes["title"] = t
		}
	}
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != draft.Description {
			draft.Description = d
			changes["description"] = d
		}
	}
	if in.SubCategory != nil {
		if sc := strings.TrimSpace(*in.SubCategory); sc != draft.SubCategory {
			draft.SubCategory = sc
			changes["sub_category"] = sc
		}
	}
	if in.Category != nil && *in.Category != draft.Category {
		if err := validateCategory(*in.Category); err != nil {
			return nil, err
		}
		draft.Category = *in.Category
		changes["category"] = draft.Category
		valuationTouched = true
	}
	if in.Condition != nil && *in.Condition != draft.Condition {
		draft.Condition = *in.Condition
		changes["condition"] = draft.Condition
		valuationTouched = true
	}
	if in.Category != nil || in.Condition != nil {
		if err := validateCondition(draft.Category, draft.Condition); err != nil {
			return nil, err
		}
	}
	if in.OriginalPrice != nil && !in.OriginalPrice.Equal(draft.OriginalPrice) {
		if err := validatePrice(*in.OriginalPrice); err != nil {
			return nil, err
		}
		draft.OriginalPrice = *in.OriginalPrice
		changes["original_price"] = draft.OriginalPrice
		valuationTouched = true
	}
	if in.PurchaseYear != nil && *in.PurchaseYear != draft.PurchaseYear {
		if err := validatePurchaseYear(*in.PurchaseYear, now); err != nil {
			return nil, err
		}
		draft.PurchaseYear = *in.PurchaseYear
		changes["purchase_year"] = draft.PurchaseYear
		valuationTouched = true
	}
	if !admin && (changes["category"] != nil || changes["purchase_year"] != nil) {
		if err := validateAntiqueAge(draft.Category, draft.PurchaseYear, now); err != nil {
			return nil, err
		}
	}
	if in.ValuationDocURLs != nil {
		docs := validation.CleanStrings(in.ValuationDocURLs)
		if err := validateDocURLs(docs); err != nil {
			return nil, err
		}
		if !equalStrings(docs, draft.ValuationDocURLs) {
			draft.ValuationDocURLs = datatypes.NewJSONSlice(docs)
			changes["valuation_doc_urls"] = docs
			valuationTouched = true
		}
	}
	appraisal := currentAppraisal(&draft)
	if in.ValuationPrice != nil {
		if err := validateAppraisal(in.ValuationPrice, draft.ValuationDocURLs); err != nil {
			return nil, err
		}
		if appraisal == nil || !appraisal.Equal(*in.ValuationPrice) {
			changes["valuation_price"] = *in.ValuationPrice
			valuationTouched = true
		}
		appraisal = in.ValuationPrice
	}
	if in.City != nil || in.PostalCode != nil {
		city, postal := draft.City, draft.PostalCode
		if in.City != nil {
			city = strings.TrimSpace(*in.City)
		}
		if in.PostalCode != nil {
			postal = strings.TrimSpace(*in.PostalCode)
		}
		if err := validateLocation(city, postal); err != nil {
			return nil, err
		}
		if city != draft.City {
			changes["city"] = city
		}
		if postal != draft.PostalCode {
			changes["postal_code"] = postal
		}
		draft.City, draft.PostalCode = city, postal
	}
	if in.CollectionDeadline != nil {
		deadline := startOfDay(*in.CollectionDeadline)
		if !deadline.Equal(startOfDay(draft.CollectionDeadline)) {
			if !admin {
				if err := validateDeadline(deadline, now, s.minDeadlineDays()); err != nil {
					return nil, err
				}
			}
			draft.CollectionDeadline = deadline
			changes["collection_deadline"] = deadline
		}
	}
	if in.ImageURLs != nil {
		images := validation.CleanStrings(in.ImageURLs)
		if err := validateImages(images); err != nil {
			return nil, err
		}
		if !equalStrings(images, draft.ImageURLs) {
			draft.ImageURLs = datatypes.NewJSONSlice(images)
			changes["image_urls"] = images
		}
	}

	if valuationTouched {
		revalue(&draft, appraisal, now)
		if !admin {
			if err := validateHighValue(&draft); err != nil {
				return nil, err
			}
			if err := validateCeiling(&draft); err != nil {
				return nil, err
			}
		}
	}
	if in.EstimatedValue != nil {
		if !admin {
			return nil, apperror.Forbidden("Only administrators can override the estimated value")
		}
		if in.EstimatedValue.IsNegative() {
			return nil, apperror.Validation("Estimated value must not be negative")
		}
		draft.EstimatedValue = in.EstimatedValue.Round(2)
	}
	if !draft.EstimatedValue.Equal(current.EstimatedValue) {
		changes["estimated_value"] = draft.EstimatedValue
	}

	transition, err := s.resolveTransition(ctx, current, &draft, in, now)
	if err != nil {
		return nil, err
	}

	if len(changes) == 0 && transition == nil {
		return current, nil
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Listing{}).Where("listing_id = ?", draft.ListingID).
			Select("*").Omit("created_at").Updates(&draft)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errListingGone
		}
		if len(changes) > 0 {
			if err := recordEvent(tx, draft.ListingID, actor.UserID, domain.EventUpdated, changes); err != nil {
				return err
			}
		}
		if transition != nil {
			return recordEvent(tx, draft.ListingID, actor.UserID, domain.EventStatusChanged, transition)
		}
		return nil
	})
	if errors.Is(err, errListingGone) {
		return nil, apperror.NotFound("Listing not found")
	}
	if err != nil {
		log.Error().Err(err).Str("listing_id", listingID.String()).Msg("listings: update failed")
		return nil, apperror.Server("Failed to update listing", err)
	}
	if transition != nil {
		log.Info().Str("listing_id", listingID.String()).Str("actor_id", actor.UserID.String()).
			Str("from", string(current.Status)).Str("to", string(draft.Status)).Msg("listings: status changed")
		if draft.Status == domain.StatusDonated {
			s.notifyRecipient(ctx, &draft)
		}
	}
	return &draft, nil
}

// resolveTransition applies a requested status/recipient change to draft and
// returns the event payload, or nil when the status does not change.
//
// Re-setting donated with the same (or no) recipient keeps donated_at. A
// different recipient on an already donated listing is rejected; the listing
// has to leave donated first.
func (s *Service) resolveTransition(ctx context.Context, current, draft *domain.Listing, in UpdateListingInput, now time.Time) (map[string]interface{}, error) {
	target := current.Status
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperror.Validation("Invalid status")
		}
		target = *in.Status
	}

	if target != domain.StatusDonated {
		if in.RecipientID != nil {
			return nil, apperror.Validation("recipient_id can only be set together with status donated")
		}
		if target == current.Status {
			return nil, nil
		}
		draft.Status = target
		draft.RecipientID = nil
		draft.DonatedAt = nil
		return map[string]interface{}{"from": current.Status, "to": target}, nil
	}

	if current.Status == domain.StatusDonated {
		if in.RecipientID != nil && current.RecipientID != nil && *in.RecipientID != *current.RecipientID {
			return nil, apperror.Validation("Listing is already donated to another recipient")
		}
		return nil, nil
	}

	if in.RecipientID == nil || *in.RecipientID == uuid.Nil {
		return nil, apperror.Validation("recipient_id is required when marking a listing as donated")
	}
	recipientID := *in.RecipientID
	if recipientID == current.OwnerID {
		return nil, apperror.Validation("The owner cannot be the recipient of their own listing")
	}
	var count int64
	if err := s.DB.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", recipientID).Count(&count).Error; err != nil {
		log.Error().Err(err).Str("recipient_id", recipientID.String()).Msg("listings: recipient lookup failed")
		return nil, apperror.Server("Failed to look up recipient", err)
	}
	if count == 0 {
		return nil, apperror.Validation("Recipient not found")
	}

	donatedAt := now
	draft.Status = domain.StatusDonated
	draft.RecipientID = &recipientID
	draft.DonatedAt = &donatedAt
	return map[string]interface{}{
		"from":         current.Status,
		"to":           domain.StatusDonated,
		"recipient_id": recipientID,
		"donated_at":   donatedAt,
	}, nil
}

func (s *Service) notifyRecipient(ctx context.Context, l *domain.Listing) {
	if s.Mailer == nil || l.RecipientID == nil {
		return
	}
	var recipient domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", *l.RecipientID).First(&recipient).Error; err != nil {
		log.Warn().Err(err).Str("listing_id", l.ListingID.String()).Msg("listings: recipient lookup for notice failed")
		return
	}
	first := ""
	if parts := strings.Fields(recipient.Fullname); len(parts) > 0 {
		first = parts[0]
	}
	if err := s.Mailer.SendDonationNotice(ctx, recipient.Email, first, l.Title); err != nil {
		log.Warn().Err(err).Str("listing_id", l.ListingID.String()).Msg("listings: donation notice failed")
	}
}

// DeleteListing hard-deletes the listing together with its messages and events.
func (s *Service) DeleteListing(ctx context.Context, actor domain.Actor, listingID uuid.UUID) error {
	if _, err := s.loadForMutation(ctx, actor, listingID); err != nil {
		return err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("listing_id = ?", listingID).Delete(&domain.ListingEvent{}).Error; err != nil {
			return err
		}
		return tx.Where("listing_id = ?", listingID).Delete(&domain.Listing{}).Error
	})
	if err != nil {
		log.Error().Err(err).Str("listing_id", listingID.String()).Msg("listings: delete failed")
		return apperror.Server("Failed to delete listing", err)
	}
	log.Info().Str("listing_id", listingID.String()).Str("actor_id", actor.UserID.String()).Msg("listings: deleted")
	return nil
}

// SetApproval toggles the moderation gate. approved_at is stamped on the
// false->true edge and cleared on true->false; repeating a state is a no-op.
func (s *Service) SetApproval(ctx context.Context, actor domain.Actor, listingID uuid.UUID, approved bool) (*domain.Listing, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("Only administrators can moderate listings")
	}
	listing, err := s.find(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.IsApproved == approved {
		return listing, nil
	}

	var approvedAt *time.Time
	eventType := domain.EventUnapproved
	if approved {
		t := s.now()
		approvedAt = &t
		eventType = domain.EventApproved
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Listing{}).Where("listing_id = ?", listing.ListingID).Updates(map[string]interface{}{
			"is_approved": approved,
			"approved_at": approvedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errListingGone
		}
		return recordEvent(tx, listing.ListingID, actor.UserID, eventType, map[string]interface{}{"approved": approved})
	})
	if errors.Is(err, errListingGone) {
		return nil, apperror.NotFound("Listing not found")
	}
	if err != nil {
		log.Error().Err(err).Str("listing_id", listingID.String()).Msg("listings: approval update failed")
		return nil, apperror.Server("Failed to update approval", err)
	}
	listing.IsApproved = approved
	listing.ApprovedAt = approvedAt
	log.Info().Str("listing_id", listingID.String()).Bool("approved", approved).Msg("listings: moderation changed")
	return listing, nil
}

// GetListing returns a listing. Unapproved listings are only visible to their
// owner and administrators; everyone else gets not found.
func (s *Service) GetListing(ctx context.Context, viewer domain.Actor, listingID uuid.UUID) (*domain.Listing, error) {
	listing, err := s.find(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsApproved && !viewer.CanManage(listing) {
		return nil, apperror.NotFound("Listing not found")
	}
	return listing, nil
}

// PublicFilter narrows the public catalogue.
type PublicFilter struct {
	Category domain.Category
	City     string
	Status   domain.ListingStatus
}

// ListPublic returns approved, not yet donated listings, newest first.
func (s *Service) ListPublic(ctx context.Context, f PublicFilter) ([]domain.Listing, error) {
	q := s.DB.WithContext(ctx).Where("is_approved = ? AND status <> ?", true, domain.StatusDonated)
	if f.Category != "" {
		if !f.Category.Valid() {
			return nil, apperror.Validation("Invalid category")
		}
		q = q.Where("category = ?", f.Category)
	}
	if f.City != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(strings.TrimSpace(f.City)))
	}
	if f.Status != "" {
		if f.Status != domain.StatusAvailable && f.Status != domain.StatusOnHold {
			return nil, apperror.Validation("Invalid status filter")
		}
		q = q.Where("status = ?", f.Status)
	}
	return s.list(q)
}

// ListByOwner returns the owner's listings in every state.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Listing, error) {
	return s.list(s.DB.WithContext(ctx).Where("owner_id = ?", ownerID))
}

// ListReceived returns listings donated to recipientID.
func (s *Service) ListReceived(ctx context.Context, recipientID uuid.UUID) ([]domain.Listing, error) {
	return s.list(s.DB.WithContext(ctx).Where("recipient_id = ? AND status = ?", recipientID, domain.StatusDonated))
}

// ListPending returns listings awaiting moderation.
func (s *Service) ListPending(ctx context.Context, actor domain.Actor) ([]domain.Listing, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("Only administrators can view the moderation queue")
	}
	return s.list(s.DB.WithContext(ctx).Where("is_approved = ?", false))
}

func (s *Service) list(q *gorm.DB) ([]domain.Listing, error) {
	listings := []domain.Listing{}
	if err := q.Order("created_at DESC").Order("listing_id ASC").Find(&listings).Error; err != nil {
		log.Error().Err(err).Msg("listings: query failed")
		return nil, apperror.Server("Failed to fetch listings", err)
	}
	return listings, nil
}

func (s *Service) find(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	if listingID == uuid.Nil {
		return nil, apperror.Validation("listing_id is required")
	}
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Listing not found")
		}
		log.Error().Err(err).Str("listing_id", listingID.String()).Msg("listings: lookup failed")
		return nil, apperror.Server("Failed to fetch listing", err)
	}
	return &listing, nil
}

func (s *Service) loadForMutation(ctx context.Context, actor domain.Actor, listingID uuid.UUID) (*domain.Listing, error) {
	if actor.UserID == uuid.Nil {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	listing, err := s.find(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(listing) {
		return nil, apperror.Forbidden("Only the owner or an administrator can modify this listing")
	}
	return listing, nil
}

func recordEvent(tx *gorm.DB, listingID, actorID uuid.UUID, eventType string, data map[string]interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.Create(&domain.ListingEvent{
		ListingID: listingID,
		EventType: eventType,
		EventData: datatypes.JSON(b),
		ActorID:   actorID,
	}).Error
}

func currentAppraisal(l *domain.Listing) *decimal.Decimal {
	if !l.IsValuated || !l.ValuationPrice.Valid {
		return nil
	}
	d := l.ValuationPrice.Decimal
	return &d
}

func equalStrings(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type PreviewInput struct {
	Category       domain.Category
	Condition      domain.Condition
	OriginalPrice  decimal.Decimal
	PurchaseYear   int
	ValuationPrice *decimal.Decimal
	HasDocument    bool
}

// PreviewValuation runs the valuation for a draft without persisting anything,
// so forms can show the estimate before submission.
func (s *Service) PreviewValuation(in PreviewInput) (valuation.Result, error) {
	now := s.now()
	if err := validateCategory(in.Category); err != nil {
		return valuation.Result{}, err
	}
	if err := validateCondition(in.Category, in.Condition); err != nil {
		return valuation.Result{}, err
	}
	if err := validatePrice(in.OriginalPrice); err != nil {
		return valuation.Result{}, err
	}
	if err := validatePurchaseYear(in.PurchaseYear, now); err != nil {
		return valuation.Result{}, err
	}
	vin := valuation.Input{
		Category:      in.Category,
		Condition:     in.Condition,
		OriginalPrice: in.OriginalPrice,
		PurchaseYear:  in.PurchaseYear,
		CurrentYear:   now.Year(),
	}
	if in.ValuationPrice != nil {
		vin.Appraisal = &valuation.Appraisal{Amount: *in.ValuationPrice, Documented: in.HasDocument}
	}
	return valuation.Valuate(vin), nil
}
