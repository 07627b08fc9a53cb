package seed

import (
	"context"
	"math/rand"
	"testing"

	"handbook/internal/featureflags"
	"handbook/internal/repository"
	"handbook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReference(t *testing.T) {
	ref, err := LoadReference()
	require.NoError(t, err)

	assert.Len(t, ref.Channels, 7)
	assert.Len(t, ref.Events, 16)
	assert.Equal(t, SystemUserID, ref.Welcome.UserID)

	announcements := 0
	for _, ch := range ref.Channels {
		assert.NotEmpty(t, ch.Icon, ch.ID)
		if ch.IsAnnouncement {
			announcements++
		}
	}
	assert.Equal(t, 1, announcements)
}

func TestEventSeed_Resolve(t *testing.T) {
	ref, err := LoadReference()
	require.NoError(t, err)

	for _, es := range ref.Events {
		event, err := es.Resolve(2025)
		require.NoError(t, err, es.ID)
		assert.Equal(t, 2025, event.StartTime.Year(), es.ID)
		assert.False(t, event.EndTime.Before(event.StartTime), es.ID)
	}
}

func TestSeed_IsIdempotent(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()
	opts := Options{Year: 2025, Rand: rand.New(rand.NewSource(1))}

	require.NoError(t, Seed(ctx, store, opts))

	chats := repository.NewChatRepository(store, featureflags.NewManager(""))
	channels, err := chats.ListChannels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 7)
	counts := map[string]int64{}
	for _, ch := range channels {
		counts[ch.ID] = ch.MemberCount
		if ch.IsAnnouncement {
			assert.Equal(t, int64(0), ch.MemberCount)
			continue
		}
		assert.GreaterOrEqual(t, ch.MemberCount, int64(50), ch.ID)
		assert.Less(t, ch.MemberCount, int64(350), ch.ID)
	}

	event, err := repository.NewEventRepository(store).GetByID(ctx, "w3-1")
	require.NoError(t, err)
	assert.Equal(t, 2025, event.StartTime.Year())
	assert.Equal(t, 22, event.StartTime.Hour())

	require.NoError(t, Seed(ctx, store, Options{Year: 2025, Rand: rand.New(rand.NewSource(2))}))

	assert.Equal(t, int64(7), testutil.CountRows(t, store, "channels"))
	assert.Equal(t, int64(16), testutil.CountRows(t, store, "events"))
	assert.Equal(t, int64(1), testutil.CountRows(t, store, "messages"))
	assert.Equal(t, int64(1), testutil.CountRows(t, store, "users"))

	channels, err = chats.ListChannels(ctx)
	require.NoError(t, err)
	for _, ch := range channels {
		assert.Equal(t, counts[ch.ID], ch.MemberCount, "re-seeding keeps member counts")
	}
}

func TestSeed_DemoData(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	ctx := context.Background()

	err := Seed(ctx, store, Options{Year: 2025, DemoUsers: 5, DemoPosts: 12, Rand: rand.New(rand.NewSource(7))})
	require.NoError(t, err)

	// five demo users plus the system account
	assert.Equal(t, int64(6), testutil.CountRows(t, store, "users"))
	assert.Equal(t, int64(12), testutil.CountRows(t, store, "posts"))
	// one greeting per demo user plus the welcome message
	assert.Equal(t, int64(6), testutil.CountRows(t, store, "messages"))
	assert.GreaterOrEqual(t, testutil.CountRows(t, store, "channel_members"), int64(5))

	row, found, err := store.Get(ctx, "SELECT COALESCE(SUM(likes_count), 0) AS n FROM posts")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, testutil.CountRows(t, store, "post_likes"), row.Int64("n"))

	feed, err := repository.NewPostRepository(store, featureflags.NewManager("")).ListFeed(ctx, "", 50)
	require.NoError(t, err)
	require.Len(t, feed, 12)
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].CreatedAt.After(feed[i-1].CreatedAt))
	}

	users, err := repository.NewUserRepository(store).GetByID(ctx, SystemUserID)
	require.NoError(t, err)
	assert.Nil(t, users.PasswordHash)
}
