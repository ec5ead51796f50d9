package messages

import (
	"testing"
	"time"

	"handover-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScope(t *testing.T) {
	for _, raw := range []string{"", "  ", "undefined", "null", "NULL", "general"} {
		id, ok := NormalizeScope(raw)
		assert.True(t, ok, raw)
		assert.Nil(t, id, raw)
	}

	listing := uuid.New()
	id, ok := NormalizeScope(listing.String())
	require.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, listing, *id)

	_, ok = NormalizeScope("not-a-listing")
	assert.False(t, ok)
}

func TestThreadKey(t *testing.T) {
	c := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	l := uuid.MustParse("660e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000|general", ThreadKey(c, nil))
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000|660e8400-e29b-41d4-a716-446655440000", ThreadKey(c, &l))
	assert.Equal(t, ThreadKey(c, nil), ThreadKey(c, &uuid.Nil))
}

func TestResolveThreads(t *testing.T) {
	me, alice, bob := uuid.New(), uuid.New(), uuid.New()
	shelf := uuid.New()
	now := time.Now()

	newestFirst := []domain.Message{
		{SenderID: me, RecipientID: alice, ListingID: &shelf, Content: "my reply", CreatedAt: now, IsRead: false},
		{SenderID: alice, RecipientID: me, Content: "general ping", CreatedAt: now.Add(-time.Minute), IsRead: true},
		{SenderID: alice, RecipientID: me, ListingID: &shelf, Content: "question", CreatedAt: now.Add(-2 * time.Minute)},
		{SenderID: bob, RecipientID: me, Content: "hi", CreatedAt: now.Add(-3 * time.Minute), IsRead: true},
	}

	threads := ResolveThreads(me, newestFirst)
	require.Len(t, threads, 3)

	assert.Equal(t, ThreadKey(alice, &shelf), threads[0].Key)
	assert.Equal(t, "my reply", threads[0].Last.Content)
	assert.True(t, threads[0].Unread, "older unread question folds into the thread")

	assert.Equal(t, ThreadKey(alice, nil), threads[1].Key)
	assert.False(t, threads[1].Unread)

	assert.Equal(t, bob, threads[2].CounterpartyID)
	assert.False(t, threads[2].Unread)
}

func TestResolveThreads_OwnUnreadMessagesDoNotCount(t *testing.T) {
	me, alice := uuid.New(), uuid.New()
	threads := ResolveThreads(me, []domain.Message{{SenderID: me, RecipientID: alice, Content: "hello"}})
	require.Len(t, threads, 1)
	assert.False(t, threads[0].Unread)
}
