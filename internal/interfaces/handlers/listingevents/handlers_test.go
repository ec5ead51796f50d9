package listingevents

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	lesvc "handover-backend/internal/application/listingevents"
	"handover-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupLETest(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}, &domain.ListingEvent{}))
	svc := &lesvc.Service{DB: db}
	h := &Handlers{Service: svc}
	return h, db
}

func seedListingWithEvents(t *testing.T, db *gorm.DB, owner uuid.UUID) uuid.UUID {
	l := domain.Listing{
		OwnerID:            owner,
		Title:              "Bike",
		Category:           domain.CategoryVehicles,
		OriginalPrice:      decimal.NewFromInt(400),
		PurchaseYear:       2022,
		Condition:          domain.ConditionUsed,
		EstimatedValue:     decimal.NewFromInt(68),
		Status:             domain.StatusAvailable,
		City:               "Hamburg",
		PostalCode:         "20095",
		CollectionDeadline: time.Now().AddDate(0, 0, 10),
		ImageURLs:          datatypes.NewJSONSlice([]string{"https://cdn.example.com/bike.jpg"}),
	}
	require.NoError(t, db.Create(&l).Error)
	at := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	for i, typ := range []string{domain.EventCreated, domain.EventApproved, domain.EventUpdated} {
		ev := domain.ListingEvent{
			ListingID: l.ListingID,
			EventType: typ,
			EventData: datatypes.JSON(`{}`),
			ActorID:   owner,
			CreatedAt: at.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.Create(&ev).Error)
	}
	return l.ListingID
}

func appAs(h *Handlers, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"role":    role,
		})
		return c.Next()
	})
	app.Get("/get-listing-events/:listing_id", h.GetListingEvents)
	return app
}

func TestGetListingEvents_NoSession(t *testing.T) {
	h, _ := setupLETest(t)
	app := fiber.New()
	app.Get("/get-listing-events/:listing_id", h.GetListingEvents)

	req := httptest.NewRequest("GET", "/get-listing-events/"+uuid.NewString(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestGetListingEvents_ListingNotFound(t *testing.T) {
	h, _ := setupLETest(t)
	app := appAs(h, uuid.New(), "user")

	req := httptest.NewRequest("GET", "/get-listing-events/"+uuid.NewString(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestGetListingEvents_InvalidID(t *testing.T) {
	h, _ := setupLETest(t)
	app := appAs(h, uuid.New(), "user")

	req := httptest.NewRequest("GET", "/get-listing-events/abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetListingEvents_StrangerForbidden(t *testing.T) {
	h, db := setupLETest(t)
	id := seedListingWithEvents(t, db, uuid.New())
	app := appAs(h, uuid.New(), "user")

	req := httptest.NewRequest("GET", "/get-listing-events/"+id.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestGetListingEvents_OwnerAndAdmin(t *testing.T) {
	h, db := setupLETest(t)
	owner := uuid.New()
	id := seedListingWithEvents(t, db, owner)

	for _, app := range []*fiber.App{appAs(h, owner, "user"), appAs(h, uuid.New(), "admin")} {
		req := httptest.NewRequest("GET", "/get-listing-events/"+id.String(), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)

		var result struct {
			Data struct {
				Events []domain.ListingEvent `json:"events"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		require.Len(t, result.Data.Events, 3)
		assert.Equal(t, domain.EventCreated, result.Data.Events[0].EventType)
		assert.Equal(t, domain.EventUpdated, result.Data.Events[2].EventType)
	}
}
