package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one entry of the append-only message log. ListingID nil means
// the general (unscoped) thread between the two parties.
type Message struct {
	MessageID   uuid.UUID  `gorm:"column:message_id;type:uuid;primaryKey" json:"message_id"`
	SenderID    uuid.UUID  `gorm:"column:sender_id;type:uuid;not null;index" json:"sender_id"`
	RecipientID uuid.UUID  `gorm:"column:recipient_id;type:uuid;not null;index:idx_messages_recipient_read" json:"recipient_id"`
	ListingID   *uuid.UUID `gorm:"column:listing_id;type:uuid;index" json:"listing_id"`
	Content     string     `gorm:"column:content;type:text;not null" json:"content"`
	IsRead      bool       `gorm:"column:is_read;not null;default:false;index:idx_messages_recipient_read" json:"read"`
	CreatedAt   time.Time  `gorm:"column:created_at;index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// BeforeCreate assigns a UUIDv7 so ids sort in insertion order and can break
// created_at ties.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.MessageID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.MessageID = id
	}
	return nil
}

// Counterparty returns the party of m that is not userID.
func (m *Message) Counterparty(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}
