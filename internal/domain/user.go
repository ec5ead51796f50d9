package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a marketplace member. Donors and recipients are both plain users;
// administrators moderate listings.
type User struct {
	UserID       uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Fullname     string         `gorm:"column:fullname;not null" json:"fullname"`
	UserName     string         `gorm:"column:user_name;not null;uniqueIndex" json:"user_name"`
	Email        string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Role         string         `gorm:"column:role;type:varchar(20);not null;default:user" json:"role"`
	City         string         `gorm:"column:city" json:"city"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// PublicUser is the part of a user that other members may see.
type PublicUser struct {
	UserID   uuid.UUID `json:"user_id"`
	Fullname string    `json:"fullname"`
	UserName string    `json:"user_name"`
	City     string    `json:"city,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{UserID: u.UserID, Fullname: u.Fullname, UserName: u.UserName, City: u.City}
}
