package realtime

import "encoding/json"

// Client to server event types.
const (
	EventJoinChannel  = "join_channel"
	EventLeaveChannel = "leave_channel"
	EventSendMessage  = "send_message"
	EventTyping       = "typing"
)

// Server to client event types.
const (
	EventNewMessage = "new_message"
	EventUserTyping = "user_typing"
	EventError      = "error"
)

// Envelope is the wire shape of every frame in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// TypingData is the payload of typing and user_typing events.
type TypingData struct {
	ChannelID string `json:"channelId,omitempty"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
}

// Encode builds an outbound frame.
func Encode(eventType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Data: raw})
}
