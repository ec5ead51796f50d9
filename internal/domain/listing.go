package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryFurniture Category = "Furniture"
	CategoryVehicles  Category = "Vehicles"
	CategoryBooks     Category = "Books"
	CategoryAntique   Category = "Antique"
)

var Categories = []Category{CategoryFurniture, CategoryVehicles, CategoryBooks, CategoryAntique}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsedLikeNew Condition = "used_like_new"
	ConditionUsed        Condition = "used"
	ConditionScrap       Condition = "scrap"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionUsedLikeNew, ConditionUsed, ConditionScrap:
		return true
	}
	return false
}

type ListingStatus string

const (
	StatusAvailable ListingStatus = "available"
	StatusOnHold    ListingStatus = "on_hold"
	StatusDonated   ListingStatus = "donated"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusOnHold, StatusDonated:
		return true
	}
	return false
}

// Listing is an item offered for donation. Status and moderation are
// independent: IsApproved controls public visibility only.
type Listing struct {
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	OwnerID     uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Category    Category  `gorm:"column:category;type:varchar(20);not null;index" json:"category"`
	SubCategory string    `gorm:"column:sub_category" json:"sub_category"`

	OriginalPrice  decimal.Decimal     `gorm:"column:original_price;type:decimal(12,2);not null" json:"original_price"`
	PurchaseYear   int                 `gorm:"column:purchase_year;not null" json:"purchase_year"`
	Condition      Condition           `gorm:"column:condition;type:varchar(20);not null" json:"condition"`
	IsValuated     bool                `gorm:"column:is_valuated;not null;default:false" json:"is_valuated"`
	ValuationPrice decimal.NullDecimal `gorm:"column:valuation_price;type:decimal(12,2)" json:"valuation_price"`
	EstimatedValue decimal.Decimal     `gorm:"column:estimated_value;type:decimal(12,2);not null" json:"estimated_value"`

	IsApproved bool       `gorm:"column:is_approved;not null;default:false;index" json:"is_approved"`
	ApprovedAt *time.Time `gorm:"column:approved_at" json:"approved_at"`

	Status      ListingStatus `gorm:"column:status;type:varchar(20);not null;default:'available';index" json:"status"`
	RecipientID *uuid.UUID    `gorm:"column:recipient_id;type:uuid;index" json:"recipient_id"`
	DonatedAt   *time.Time    `gorm:"column:donated_at" json:"donated_at"`

	City               string    `gorm:"column:city;not null" json:"city"`
	PostalCode         string    `gorm:"column:postal_code;not null" json:"postal_code"`
	CollectionDeadline time.Time `gorm:"column:collection_deadline;not null" json:"collection_deadline"`

	ImageURLs        datatypes.JSONSlice[string] `gorm:"column:image_urls;type:json;not null" json:"image_urls"`
	ValuationDocURLs datatypes.JSONSlice[string] `gorm:"column:valuation_doc_urls;type:json" json:"valuation_doc_urls"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets listing_id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}

// FirstImage returns the cover image or "" when the listing has none.
func (l *Listing) FirstImage() string {
	if len(l.ImageURLs) == 0 {
		return ""
	}
	return l.ImageURLs[0]
}

// IsOwnedBy reports whether userID created the listing.
func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}
