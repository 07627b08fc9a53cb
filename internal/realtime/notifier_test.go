package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishRoom(context.Background(), "ch_1", []byte("x")))
	done, err := n.StartRoomSubscriber(context.Background(), func(string, []byte) {})
	assert.NoError(t, err)
	assert.Nil(t, done)
}

func TestRoomChannel(t *testing.T) {
	assert.Equal(t, "chat:room:ch_general", RoomChannel("ch_general"))
}

func TestHub_FanOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newRedis := func() *redis.Client {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return rdb
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hubA := NewHub(0, NewNotifier(newRedis()))
	hubB := NewHub(0, NewNotifier(newRedis()))
	require.NoError(t, hubA.StartWiring(ctx))
	require.NoError(t, hubB.StartWiring(ctx))

	alice, aliceTwin := register(t, hubA), register(t, hubA)
	bob := register(t, hubB)
	hubA.Join(alice, "ch_general")
	hubA.Join(aliceTwin, "ch_general")
	hubB.Join(bob, "ch_general")

	require.NoError(t, hubA.Publish(ctx, "ch_general", EventUserTyping, TypingData{UserID: "usr_a"}, alice))

	assert.Eventually(t, func() bool { return len(bob.Send) == 1 && len(aliceTwin.Send) == 1 },
		testEventuallyTimeout, testPollInterval)
	assert.Empty(t, alice.Send)

	require.NoError(t, hubB.Publish(ctx, "ch_general", EventNewMessage, map[string]string{"id": "msg_1"}, nil))
	assert.Eventually(t, func() bool { return len(alice.Send) == 1 && len(bob.Send) == 2 },
		testEventuallyTimeout, testPollInterval)
}

func TestHub_DeliversLocallyUntilSubscribed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub(0, NewNotifier(rdb))
	alice := register(t, hub)
	hub.Join(alice, "ch_general")

	assert.False(t, hub.Subscribed())
	require.NoError(t, hub.Publish(context.Background(), "ch_general", EventNewMessage, map[string]string{"id": "msg_1"}, nil))

	events := drain(alice)
	require.Len(t, events, 1)
	assert.Equal(t, EventNewMessage, events[0].Type)
}

func TestHub_ResubscribesAfterFailedStart(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(0, NewNotifier(rdb))
	hub.resubscribeDelay = 20 * time.Millisecond
	alice := register(t, hub)
	hub.Join(alice, "ch_general")

	require.Error(t, hub.StartWiring(ctx))
	assert.False(t, hub.Subscribed())

	require.NoError(t, hub.Publish(ctx, "ch_general", EventNewMessage, map[string]string{"id": "msg_1"}, nil))
	assert.Len(t, alice.Send, 1)

	require.NoError(t, mr.Restart())
	t.Cleanup(mr.Close)
	require.Eventually(t, hub.Subscribed, 3*time.Second, testPollInterval)

	require.NoError(t, hub.Publish(ctx, "ch_general", EventNewMessage, map[string]string{"id": "msg_2"}, nil))
	assert.Eventually(t, func() bool { return len(alice.Send) == 2 }, testEventuallyTimeout, testPollInterval)

	cancel()
	assert.Eventually(t, func() bool { return !hub.Subscribed() }, testEventuallyTimeout, testPollInterval)
}
