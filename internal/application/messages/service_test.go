package messages

import (
	"context"
	"testing"
	"time"

	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	svc     *Service
	db      *gorm.DB
	alice   uuid.UUID
	bob     uuid.UUID
	carol   uuid.UUID
	listing uuid.UUID
	other   uuid.UUID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Listing{}, &domain.Message{}))

	f := &fixture{svc: &Service{DB: db}, db: db}
	for _, p := range []struct {
		name string
		id   *uuid.UUID
	}{{"alice", &f.alice}, {"bob", &f.bob}, {"carol", &f.carol}} {
		u := domain.User{Fullname: p.name, UserName: p.name, Email: p.name + "@example.com", PasswordHash: "x", Role: "user"}
		require.NoError(t, db.Create(&u).Error)
		*p.id = u.UserID
	}
	f.listing = seedListing(t, db, f.bob, "Bookshelf")
	f.other = seedListing(t, db, f.bob, "Sofa")
	return f
}

func seedListing(t *testing.T, db *gorm.DB, owner uuid.UUID, title string) uuid.UUID {
	t.Helper()
	l := domain.Listing{
		OwnerID:            owner,
		Title:              title,
		Category:           domain.CategoryFurniture,
		OriginalPrice:      decimal.NewFromInt(100),
		PurchaseYear:       2024,
		Condition:          domain.ConditionUsed,
		EstimatedValue:     decimal.NewFromInt(25),
		Status:             domain.StatusAvailable,
		City:               "Berlin",
		PostalCode:         "10115",
		CollectionDeadline: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		ImageURLs:          datatypes.NewJSONSlice([]string{"https://cdn.example.com/" + title + ".jpg"}),
	}
	require.NoError(t, db.Create(&l).Error)
	return l.ListingID
}

func (f *fixture) put(t *testing.T, from, to uuid.UUID, listingID *uuid.UUID, content string, at time.Time) domain.Message {
	t.Helper()
	m := domain.Message{SenderID: from, RecipientID: to, ListingID: listingID, Content: content, CreatedAt: at}
	require.NoError(t, f.db.Create(&m).Error)
	return m
}

var base = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func TestSendMessage_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, f.alice, f.bob, "   ", nil)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.SendMessage(ctx, f.alice, f.alice, "hi", nil)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.SendMessage(ctx, f.alice, uuid.New(), "hi", nil)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	missing := uuid.New()
	_, err = f.svc.SendMessage(ctx, f.alice, f.bob, "hi", &missing)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	// carol is not the owner of bob's listing and neither is alice
	_, err = f.svc.SendMessage(ctx, f.alice, f.carol, "hi", &f.listing)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.SendMessage(ctx, uuid.Nil, f.bob, "hi", nil)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestSendMessage_Persists(t *testing.T) {
	f := setup(t)
	msg, err := f.svc.SendMessage(context.Background(), f.alice, f.bob, "Is the bookshelf still available?", &f.listing)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, msg.MessageID)
	assert.Equal(t, uuid.Version(7), msg.MessageID.Version())
	assert.False(t, msg.IsRead)
	require.NotNil(t, msg.ListingID)
	assert.Equal(t, f.listing, *msg.ListingID)
}

func TestGetThreadHistory_OldestFirstAndScoped(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.put(t, f.alice, f.bob, &f.listing, "first", base)
	f.put(t, f.bob, f.alice, &f.listing, "second", base.Add(time.Minute))
	f.put(t, f.alice, f.bob, nil, "general hello", base.Add(2*time.Minute))
	f.put(t, f.alice, f.bob, &f.other, "about the sofa", base.Add(3*time.Minute))
	f.put(t, f.carol, f.bob, &f.listing, "carol asks too", base.Add(4*time.Minute))

	history, err := f.svc.GetThreadHistory(ctx, f.alice, f.bob, &f.listing)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)

	general, err := f.svc.GetThreadHistory(ctx, f.bob, f.alice, nil)
	require.NoError(t, err)
	require.Len(t, general, 1)
	assert.Equal(t, "general hello", general[0].Content)
}

func TestGetThreadHistory_TiesKeepInsertionOrder(t *testing.T) {
	f := setup(t)
	for _, c := range []string{"a", "b", "c", "d"} {
		f.put(t, f.alice, f.bob, nil, c, base)
	}
	history, err := f.svc.GetThreadHistory(context.Background(), f.alice, f.bob, nil)
	require.NoError(t, err)
	got := []string{}
	for _, m := range history {
		got = append(got, m.Content)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestUnreadCount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.put(t, f.alice, f.bob, &f.listing, "one", base)
	f.put(t, f.carol, f.bob, nil, "two", base)
	f.put(t, f.bob, f.alice, nil, "three", base)

	n, err := f.svc.UnreadCount(ctx, f.bob)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.svc.UnreadCount(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMarkThreadRead_ExactScopeAndIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.put(t, f.alice, f.bob, &f.listing, "L1 a", base)
	f.put(t, f.alice, f.bob, &f.listing, "L1 b", base.Add(time.Second))
	f.put(t, f.alice, f.bob, &f.other, "L2", base.Add(2*time.Second))
	f.put(t, f.alice, f.bob, nil, "general", base.Add(3*time.Second))
	f.put(t, f.bob, f.alice, &f.listing, "reply", base.Add(4*time.Second))

	flipped, err := f.svc.MarkThreadRead(ctx, f.bob, f.alice, &f.listing)
	require.NoError(t, err)
	assert.Equal(t, int64(2), flipped)

	flipped, err = f.svc.MarkThreadRead(ctx, f.bob, f.alice, &f.listing)
	require.NoError(t, err)
	assert.Zero(t, flipped)

	var unread []domain.Message
	require.NoError(t, f.db.Where("is_read = ?", false).Order("created_at").Find(&unread).Error)
	contents := []string{}
	for _, m := range unread {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"L2", "general", "reply"}, contents)

	flipped, err = f.svc.MarkThreadRead(ctx, f.bob, f.alice, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flipped)

	n, err := f.svc.UnreadCount(ctx, f.bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGetInbox_SeparatesScopes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.put(t, f.alice, f.bob, &f.listing, "about the shelf", base)
	f.put(t, f.alice, f.bob, nil, "hello", base.Add(time.Minute))

	rows, err := f.svc.GetInbox(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "hello", rows[0].LastMessage)
	assert.Equal(t, GeneralScope, rows[0].Scope)
	assert.Nil(t, rows[0].Listing)
	assert.Equal(t, "alice", rows[0].Counterparty.UserName)

	assert.Equal(t, "about the shelf", rows[1].LastMessage)
	require.NotNil(t, rows[1].Listing)
	assert.Equal(t, "Bookshelf", rows[1].Listing.Title)
	assert.Equal(t, "https://cdn.example.com/Bookshelf.jpg", rows[1].Listing.FirstImage)
	assert.True(t, rows[0].Unread)
	assert.True(t, rows[1].Unread)
}

func TestGetInbox_PreviewAndUnread(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.put(t, f.alice, f.bob, &f.listing, "question", base)
	f.put(t, f.bob, f.alice, &f.listing, "answer", base.Add(time.Minute))

	rows, err := f.svc.GetInbox(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "answer", rows[0].LastMessage)
	assert.True(t, rows[0].LastFromMe)
	assert.True(t, rows[0].Unread, "alice's question is still unread")

	_, err = f.svc.MarkThreadRead(ctx, f.bob, f.alice, &f.listing)
	require.NoError(t, err)
	rows, err = f.svc.GetInbox(ctx, f.bob)
	require.NoError(t, err)
	assert.False(t, rows[0].Unread)

	rows, err = f.svc.GetInbox(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Unread)
	assert.Equal(t, "bob", rows[0].Counterparty.UserName)
}

func TestGetInbox_TiesOrderedByKey(t *testing.T) {
	f := setup(t)
	f.put(t, f.alice, f.bob, nil, "from alice", base)
	f.put(t, f.carol, f.bob, nil, "from carol", base)
	f.put(t, f.alice, f.bob, &f.listing, "older", base.Add(-time.Hour))

	for i := 0; i < 5; i++ {
		rows, err := f.svc.GetInbox(context.Background(), f.bob)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.True(t, rows[0].ThreadKey < rows[1].ThreadKey)
		assert.Equal(t, "older", rows[2].LastMessage)
	}
}

func TestGetInbox_Empty(t *testing.T) {
	f := setup(t)
	rows, err := f.svc.GetInbox(context.Background(), f.carol)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
