package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"handbook/internal/models"
	"handbook/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type senderStub struct {
	mu   sync.Mutex
	sent []service.SendMessageInput
	err  error
}

func (s *senderStub) SendMessage(_ context.Context, in service.SendMessageInput) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if in.Content == "" {
		return nil, models.NewValidationError("content is required")
	}
	s.sent = append(s.sent, in)
	return &models.Message{
		ID:          "msg_" + in.Content,
		ChannelID:   in.ChannelID,
		UserID:      in.UserID,
		Username:    in.Username,
		Content:     in.Content,
		MessageType: models.DefaultMessageType,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func frame(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	raw, err := Encode(eventType, data)
	require.NoError(t, err)
	return raw
}

func TestDispatcher_SendMessageBroadcastsToRoom(t *testing.T) {
	hub := NewHub(0, nil)
	sender := &senderStub{}
	d := NewDispatcher(hub, sender)

	alice, bob, carol := register(t, hub), register(t, hub), register(t, hub)
	d.Handle(alice, frame(t, EventJoinChannel, "ch_general"))
	d.Handle(bob, frame(t, EventJoinChannel, "ch_general"))

	d.Handle(alice, frame(t, EventSendMessage, service.SendMessageInput{
		ChannelID: "ch_general", UserID: "usr_a", Username: "Alice", Content: "selam",
	}))

	require.Len(t, sender.sent, 1)
	for _, c := range []*Client{alice, bob} {
		got := drain(c)
		require.Len(t, got, 1)
		assert.Equal(t, EventNewMessage, got[0].Type)

		var msg models.Message
		require.NoError(t, json.Unmarshal(got[0].Data, &msg))
		assert.Equal(t, "msg_selam", msg.ID)
		assert.Equal(t, "Alice", msg.Username)
	}
	assert.Empty(t, drain(carol))
}

func TestDispatcher_SendFailureRepliesToSenderOnly(t *testing.T) {
	hub := NewHub(0, nil)
	sender := &senderStub{}
	d := NewDispatcher(hub, sender)

	alice, bob := register(t, hub), register(t, hub)
	d.Handle(alice, frame(t, EventJoinChannel, "ch_general"))
	d.Handle(bob, frame(t, EventJoinChannel, "ch_general"))

	d.Handle(alice, frame(t, EventSendMessage, service.SendMessageInput{ChannelID: "ch_general", UserID: "usr_a", Username: "Alice"}))
	sender.err = errors.New("database is locked")
	d.Handle(alice, frame(t, EventSendMessage, service.SendMessageInput{ChannelID: "ch_general", Content: "x"}))

	got := drain(alice)
	require.Len(t, got, 2)
	for _, env := range got {
		assert.Equal(t, EventError, env.Type)
		assert.JSONEq(t, `{"message":"Failed to send message"}`, string(env.Data))
	}
	assert.Empty(t, drain(bob))
}

func TestDispatcher_TypingGoesToOthers(t *testing.T) {
	hub := NewHub(0, nil)
	d := NewDispatcher(hub, &senderStub{})

	alice, bob := register(t, hub), register(t, hub)
	d.Handle(alice, frame(t, EventJoinChannel, "ch_general"))
	d.Handle(bob, frame(t, EventJoinChannel, "ch_general"))

	d.Handle(alice, frame(t, EventTyping, TypingData{ChannelID: "ch_general", UserID: "usr_a", Username: "Alice"}))

	assert.Empty(t, drain(alice))
	got := drain(bob)
	require.Len(t, got, 1)
	assert.Equal(t, EventUserTyping, got[0].Type)
	assert.JSONEq(t, `{"userId":"usr_a","username":"Alice"}`, string(got[0].Data))
}

func TestDispatcher_LeaveAndGarbage(t *testing.T) {
	hub := NewHub(0, nil)
	d := NewDispatcher(hub, &senderStub{})
	alice := register(t, hub)

	d.Handle(alice, frame(t, EventJoinChannel, "ch_general"))
	assert.Equal(t, 1, hub.RoomSize("ch_general"))
	d.Handle(alice, frame(t, EventLeaveChannel, "ch_general"))
	assert.Equal(t, 0, hub.RoomSize("ch_general"))

	d.Handle(alice, []byte("not json"))
	d.Handle(alice, frame(t, EventJoinChannel, map[string]string{"id": "x"}))
	d.Handle(alice, frame(t, "unknown", nil))
	assert.Empty(t, drain(alice))
	assert.Equal(t, 0, hub.RoomSize("x"))
}
