package realtime

import (
	"context"
	"runtime/debug"
	"strings"

	"handbook/internal/observability"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "chat:room:"

// Notifier publishes room events to Redis so every instance can deliver
// them to its local connections.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishRoom sends payload to a room's channel.
func (n *Notifier) PublishRoom(ctx context.Context, roomID string, payload []byte) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, RoomChannel(roomID), payload).Err()
}

// StartRoomSubscriber subscribes to every room channel and calls onMessage
// with the room id and payload until ctx is cancelled. It returns once the
// subscription is confirmed; the returned channel closes when the
// subscription ends. Without Redis both results are nil.
func (n *Notifier) StartRoomSubscriber(ctx context.Context, onMessage func(roomID string, payload []byte)) (<-chan struct{}, error) {
	if !n.Enabled() {
		return nil, nil
	}
	sub := n.rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	ch := sub.Channel()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in room subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(strings.TrimPrefix(msg.Channel, roomChannelPrefix), []byte(msg.Payload))
				}()
			}
		}
	}()

	return done, nil
}

// RoomChannel derives the Redis channel name for a chat room.
func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}
