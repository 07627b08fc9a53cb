package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"handbook/internal/models"
	"handbook/internal/observability"
	"handbook/internal/service"
)

const sendFailedMessage = "Failed to send message"

// MessageSender persists chat messages.
type MessageSender interface {
	SendMessage(ctx context.Context, in service.SendMessageInput) (*models.Message, error)
}

// Dispatcher turns inbound frames into hub operations.
type Dispatcher struct {
	hub     *Hub
	chat    MessageSender
	timeout time.Duration
}

// NewDispatcher wires a hub to the chat service.
func NewDispatcher(hub *Hub, chat MessageSender) *Dispatcher {
	return &Dispatcher{hub: hub, chat: chat, timeout: 10 * time.Second}
}

// Handle processes one frame from client. It is the client's IncomingHandler.
func (d *Dispatcher) Handle(client *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.hub.log.LogError(context.Background(), client.ID, "", err, "decode")
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(env.Type).Inc()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	switch env.Type {
	case EventJoinChannel:
		if roomID := decodeRoomID(env.Data); roomID != "" {
			d.hub.Join(client, roomID)
		}
	case EventLeaveChannel:
		if roomID := decodeRoomID(env.Data); roomID != "" {
			d.hub.Leave(client, roomID)
		}
	case EventSendMessage:
		d.sendMessage(ctx, client, env.Data)
	case EventTyping:
		d.typing(ctx, client, env.Data)
	}
}

func (d *Dispatcher) sendMessage(ctx context.Context, client *Client, data json.RawMessage) {
	var in service.SendMessageInput
	if err := json.Unmarshal(data, &in); err != nil {
		d.replyError(client, sendFailedMessage)
		return
	}

	msg, err := d.chat.SendMessage(ctx, in)
	if err != nil {
		d.hub.log.LogError(ctx, client.ID, in.ChannelID, err, EventSendMessage)
		d.replyError(client, sendFailedMessage)
		return
	}

	observability.MessageThroughput.WithLabelValues(msg.ChannelID, msg.MessageType).Inc()
	if err := d.hub.Publish(ctx, msg.ChannelID, EventNewMessage, msg, nil); err != nil {
		d.hub.log.LogError(ctx, client.ID, msg.ChannelID, err, EventNewMessage)
	}
}

func (d *Dispatcher) typing(ctx context.Context, client *Client, data json.RawMessage) {
	var in TypingData
	if err := json.Unmarshal(data, &in); err != nil || in.ChannelID == "" {
		return
	}
	out := TypingData{UserID: in.UserID, Username: in.Username}
	if err := d.hub.Publish(ctx, in.ChannelID, EventUserTyping, out, client); err != nil {
		d.hub.log.LogError(ctx, client.ID, in.ChannelID, err, EventTyping)
	}
}

func (d *Dispatcher) replyError(client *Client, message string) {
	if payload, err := Encode(EventError, ErrorData{Message: message}); err == nil {
		client.TrySend(payload)
	}
}

// decodeRoomID accepts the channel id as a bare JSON string.
func decodeRoomID(data json.RawMessage) string {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err != nil {
		return ""
	}
	return strings.TrimSpace(roomID)
}
