package domain

import (
	"github.com/google/uuid"

	"handover-backend/internal/pkg/constants"
)

// Actor is the authenticated caller of an operation, as resolved from the session.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return constants.IsAdmin(a.Role)
}

// CanManage reports whether the actor may mutate or delete a listing.
func (a Actor) CanManage(l *Listing) bool {
	return a.IsAdmin() || l.IsOwnedBy(a.UserID)
}
