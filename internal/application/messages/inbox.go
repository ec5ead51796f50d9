package messages

import (
	"context"
	"sort"
	"time"

	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ListingContext describes the item a thread is about.
type ListingContext struct {
	ListingID  uuid.UUID `json:"listing_id"`
	Title      string    `json:"title"`
	FirstImage string    `json:"first_image,omitempty"`
}

// ThreadSummary is one inbox row.
type ThreadSummary struct {
	ThreadKey     string            `json:"thread_key"`
	Counterparty  domain.PublicUser `json:"counterparty"`
	LastMessage   string            `json:"last_message"`
	LastMessageAt time.Time         `json:"last_message_at"`
	LastFromMe    bool              `json:"last_from_me"`
	Unread        bool              `json:"unread"`
	// Scope is the listing id, or "general" for unscoped threads.
	Scope   string          `json:"scope"`
	Listing *ListingContext `json:"listing,omitempty"`
}

// GetInbox returns one row per thread of userID, latest activity first.
// Threads with equal latest timestamps are ordered by thread key.
func (s *Service) GetInbox(ctx context.Context, userID uuid.UUID) ([]ThreadSummary, error) {
	if userID == uuid.Nil {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	db := s.DB.WithContext(ctx)

	var msgs []domain.Message
	if err := db.Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC").Order("message_id DESC").
		Find(&msgs).Error; err != nil {
		log.Error().Err(err).Msg("messages: inbox query failed")
		return nil, apperror.Server("Failed to fetch inbox", err)
	}
	threads := ResolveThreads(userID, msgs)
	if len(threads) == 0 {
		return []ThreadSummary{}, nil
	}

	userIDs := make([]uuid.UUID, 0, len(threads))
	listingIDs := []uuid.UUID{}
	for _, t := range threads {
		userIDs = append(userIDs, t.CounterpartyID)
		if t.ListingID != nil {
			listingIDs = append(listingIDs, *t.ListingID)
		}
	}

	var users []domain.User
	if err := db.Unscoped().Where("user_id IN ?", userIDs).Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("messages: inbox user lookup failed")
		return nil, apperror.Server("Failed to fetch inbox", err)
	}
	people := make(map[uuid.UUID]domain.PublicUser, len(users))
	for i := range users {
		people[users[i].UserID] = users[i].Public()
	}

	items := map[uuid.UUID]*ListingContext{}
	if len(listingIDs) > 0 {
		var listings []domain.Listing
		if err := db.Select("listing_id", "title", "image_urls").Where("listing_id IN ?", listingIDs).Find(&listings).Error; err != nil {
			log.Error().Err(err).Msg("messages: inbox listing lookup failed")
			return nil, apperror.Server("Failed to fetch inbox", err)
		}
		for i := range listings {
			l := &listings[i]
			items[l.ListingID] = &ListingContext{ListingID: l.ListingID, Title: l.Title, FirstImage: l.FirstImage()}
		}
	}

	rows := make([]ThreadSummary, 0, len(threads))
	for _, t := range threads {
		counterparty, ok := people[t.CounterpartyID]
		if !ok {
			counterparty = domain.PublicUser{UserID: t.CounterpartyID}
		}
		row := ThreadSummary{
			ThreadKey:     t.Key,
			Counterparty:  counterparty,
			LastMessage:   t.Last.Content,
			LastMessageAt: t.Last.CreatedAt,
			LastFromMe:    t.Last.SenderID == userID,
			Unread:        t.Unread,
			Scope:         ScopeKey(t.ListingID),
		}
		if t.ListingID != nil {
			if lc, ok := items[*t.ListingID]; ok {
				row.Listing = lc
			} else {
				row.Listing = &ListingContext{ListingID: *t.ListingID}
			}
		}
		rows = append(rows, row)
	}
	sortInbox(rows)
	return rows, nil
}

func sortInbox(rows []ThreadSummary) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].LastMessageAt.Equal(rows[j].LastMessageAt) {
			return rows[i].LastMessageAt.After(rows[j].LastMessageAt)
		}
		return rows[i].ThreadKey < rows[j].ThreadKey
	})
}
