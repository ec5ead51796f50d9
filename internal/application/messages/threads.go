package messages

import (
	"strings"

	"handover-backend/internal/domain"

	"github.com/google/uuid"
)

// GeneralScope is the scope of messages not tied to a listing.
const GeneralScope = "general"

// NormalizeScope parses a caller-supplied listing scope. Empty values and the
// literals "undefined" and "null" (case-insensitive) mean the general scope and
// yield nil. Anything else must be a listing id.
func NormalizeScope(raw string) (*uuid.UUID, bool) {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "", "undefined", "null", GeneralScope:
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// ScopeKey renders a scope for thread keys.
func ScopeKey(listingID *uuid.UUID) string {
	if listingID == nil || *listingID == uuid.Nil {
		return GeneralScope
	}
	return listingID.String()
}

// ThreadKey identifies a thread from one user's point of view.
func ThreadKey(counterpartyID uuid.UUID, listingID *uuid.UUID) string {
	return counterpartyID.String() + "|" + ScopeKey(listingID)
}

// Thread is a resolved conversation. Last is the newest message; Unread is
// true when any message addressed to the viewer is still unread.
type Thread struct {
	Key            string
	CounterpartyID uuid.UUID
	ListingID      *uuid.UUID
	Last           domain.Message
	Unread         bool
}

// ResolveThreads groups a user's messages, given newest-first, into threads
// keyed by counterparty and scope. The first message seen for a key becomes
// its preview; later ones only contribute to the unread flag. The result keeps
// the order in which threads were first seen.
func ResolveThreads(userID uuid.UUID, newestFirst []domain.Message) []*Thread {
	byKey := make(map[string]*Thread)
	threads := []*Thread{}
	for _, m := range newestFirst {
		counterparty := m.Counterparty(userID)
		key := ThreadKey(counterparty, m.ListingID)
		t, ok := byKey[key]
		if !ok {
			t = &Thread{Key: key, CounterpartyID: counterparty, ListingID: m.ListingID, Last: m}
			byKey[key] = t
			threads = append(threads, t)
		}
		if m.RecipientID == userID && !m.IsRead {
			t.Unread = true
		}
	}
	return threads
}
