// Package realtime delivers chat room events over WebSockets.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"handbook/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// DefaultMaxConnections caps concurrent connections when no limit is configured.
const DefaultMaxConnections = 10000

// DefaultResubscribeDelay is the pause between Redis subscription attempts.
const DefaultResubscribeDelay = 2 * time.Second

var (
	// ErrTooManyConnections is returned from Register when the hub is full.
	ErrTooManyConnections = errors.New("connection limit reached")

	errSubscriptionLost = errors.New("room subscription ended")
)

// Hub tracks which connections sit in which chat rooms. Room state is
// in-memory only and starts empty on every boot.
type Hub struct {
	mu sync.RWMutex

	// rooms: channelID -> set of clients
	rooms map[string]map[*Client]struct{}

	// memberships: client -> set of channelIDs
	memberships map[*Client]map[string]struct{}

	maxConns   int
	instanceID string
	notifier   *Notifier
	log        *observability.WSLogger

	// subscribed is true while this instance receives room channels from
	// Redis. Until then Publish delivers locally.
	subscribed       atomic.Bool
	resubscribeDelay time.Duration
}

// roomFrame is what travels through Redis between instances.
type roomFrame struct {
	Instance string          `json:"instance"`
	Exclude  string          `json:"exclude,omitempty"`
	Event    json.RawMessage `json:"event"`
}

// NewHub creates a hub. A notifier with Redis configured makes room
// broadcasts fan out across instances; pass nil for local delivery only.
func NewHub(maxConns int, notifier *Notifier) *Hub {
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	return &Hub{
		rooms:       make(map[string]map[*Client]struct{}),
		memberships: make(map[*Client]map[string]struct{}),
		maxConns:    maxConns,
		instanceID:  uuid.NewString(),
		notifier:    notifier,
		log:         observability.NewWSLogger("chat"),

		resubscribeDelay: DefaultResubscribeDelay,
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "chat hub" }

// Register adds a connection. It fails once the hub holds maxConns clients.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if len(h.memberships) >= h.maxConns {
		h.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	client := newClient(h, conn)
	h.memberships[client] = make(map[string]struct{})
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(context.Background(), client.ID)
	return client, nil
}

// UnregisterClient removes the client from every room and closes its queue.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	rooms, ok := h.memberships[client]
	if !ok {
		h.mu.Unlock()
		return
	}
	for roomID := range rooms {
		h.removeFromRoomLocked(client, roomID)
	}
	delete(h.memberships, client)
	h.mu.Unlock()

	client.close()
	observability.WebSocketConnectionsTotal.Dec()
	h.log.LogDisconnect(context.Background(), client.ID, len(rooms))
}

// Join puts the client in a room. Joining twice is a no-op.
func (h *Hub) Join(client *Client, roomID string) {
	h.mu.Lock()
	rooms, ok := h.memberships[client]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, already := rooms[roomID]; already {
		h.mu.Unlock()
		return
	}
	rooms[roomID] = struct{}{}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	size := len(h.rooms[roomID])
	h.mu.Unlock()

	observability.WebSocketRoomConnections.WithLabelValues(roomID).Set(float64(size))
	h.log.LogRoom(context.Background(), client.ID, roomID, "join")
}

// Leave takes the client out of a room.
func (h *Hub) Leave(client *Client, roomID string) {
	h.mu.Lock()
	rooms, ok := h.memberships[client]
	if ok {
		if _, in := rooms[roomID]; in {
			h.removeFromRoomLocked(client, roomID)
			delete(rooms, roomID)
		}
	}
	h.mu.Unlock()

	if ok {
		h.log.LogRoom(context.Background(), client.ID, roomID, "leave")
	}
}

func (h *Hub) removeFromRoomLocked(client *Client, roomID string) {
	members := h.rooms[roomID]
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, roomID)
		observability.WebSocketRoomConnections.DeleteLabelValues(roomID)
		return
	}
	observability.WebSocketRoomConnections.WithLabelValues(roomID).Set(float64(len(members)))
}

// Publish delivers an event to every connection in a room, skipping exclude
// when it is set. While the Redis subscription is live the event goes
// through the room channel so other instances deliver it too.
func (h *Hub) Publish(ctx context.Context, roomID, eventType string, data any, exclude *Client) error {
	payload, err := Encode(eventType, data)
	if err != nil {
		return err
	}

	if !h.Subscribed() {
		h.BroadcastToRoom(roomID, payload, exclude)
		return nil
	}

	frame := roomFrame{Instance: h.instanceID, Event: payload}
	if exclude != nil {
		frame.Exclude = exclude.ID
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := h.notifier.PublishRoom(ctx, roomID, raw); err != nil {
		// Redis is down: local members still get the event.
		h.log.LogError(ctx, "", roomID, err, "publish")
		h.BroadcastToRoom(roomID, payload, exclude)
	}
	return nil
}

// BroadcastToRoom sends payload to the local members of a room.
func (h *Hub) BroadcastToRoom(roomID string, payload []byte, exclude *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[roomID] {
		if client == exclude {
			continue
		}
		client.TrySend(payload)
	}
}

// Subscribed reports whether room events currently fan out through Redis.
func (h *Hub) Subscribed() bool {
	return h.notifier.Enabled() && h.subscribed.Load()
}

// StartWiring subscribes the hub to the Redis room channels and keeps the
// subscription alive until ctx is cancelled. A failed first attempt is
// returned but retried in the background; meanwhile delivery stays local.
func (h *Hub) StartWiring(ctx context.Context) error {
	if !h.notifier.Enabled() {
		return nil
	}
	done, err := h.notifier.StartRoomSubscriber(ctx, h.deliverRemote)
	if err == nil {
		h.subscribed.Store(true)
	}
	go h.maintainSubscription(ctx, done)
	return err
}

func (h *Hub) maintainSubscription(ctx context.Context, done <-chan struct{}) {
	for {
		if done != nil {
			select {
			case <-ctx.Done():
				h.subscribed.Store(false)
				return
			case <-done:
			}
			h.subscribed.Store(false)
			if ctx.Err() != nil {
				return
			}
			h.log.LogError(ctx, "", "", errSubscriptionLost, "subscribe")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(h.resubscribeDelay):
		}

		var err error
		if done, err = h.notifier.StartRoomSubscriber(ctx, h.deliverRemote); err != nil {
			h.log.LogError(ctx, "", "", err, "subscribe")
			continue
		}
		h.subscribed.Store(true)
	}
}

func (h *Hub) deliverRemote(roomID string, raw []byte) {
	var frame roomFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.log.LogError(context.Background(), "", roomID, err, "decode")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		if frame.Instance == h.instanceID && frame.Exclude != "" && client.ID == frame.Exclude {
			continue
		}
		client.TrySend(frame.Event)
	}
}

// RoomSize returns the number of local connections in a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.memberships)
}

// Shutdown drops every connection and clears room state.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.memberships))
	for client := range h.memberships {
		clients = append(clients, client)
	}
	for roomID := range h.rooms {
		observability.WebSocketRoomConnections.DeleteLabelValues(roomID)
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.memberships = make(map[*Client]map[string]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
		observability.WebSocketConnectionsTotal.Dec()
	}
	return nil
}
