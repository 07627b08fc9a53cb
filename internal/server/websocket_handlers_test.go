package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"handbook/internal/config"
	"handbook/internal/models"
	"handbook/internal/realtime"
	"handbook/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startLive serves app on a loopback port and returns the socket URL.
func startLive(t *testing.T, srv *Server, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		_ = srv.hub.Shutdown(t.Context())
		_ = app.Shutdown()
	})
	return "ws://" + ln.Addr().String() + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, data any) {
	t.Helper()
	frame, err := realtime.Encode(eventType, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) realtime.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env realtime.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	_, app, _ := newTestServer(t)
	for _, path := range []string{"/ws", "/socket"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode, path)
	}
}

func TestWebSocket_ChatRoundTrip(t *testing.T) {
	srv, app, store := newTestServer(t)
	testutil.InsertChannel(t, store, "ch_general", "General", false)
	url := startLive(t, srv, app)

	alice := dial(t, url)
	bob := dial(t, url)
	outsider := dial(t, url)

	send(t, alice, realtime.EventJoinChannel, "ch_general")
	send(t, bob, realtime.EventJoinChannel, "ch_general")
	require.Eventually(t, func() bool { return srv.hub.RoomSize("ch_general") == 2 },
		3*time.Second, 10*time.Millisecond)

	send(t, alice, realtime.EventSendMessage, map[string]string{
		"channelId": "ch_general",
		"userId":    "usr_alice",
		"username":  "alice",
		"content":   "Selam!",
	})

	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		require.Equal(t, realtime.EventNewMessage, env.Type)
		var msg models.Message
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, "Selam!", msg.Content)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, models.DefaultMessageType, msg.MessageType)
		assert.Regexp(t, `^msg_`, msg.ID)
	}
	assert.EqualValues(t, 1, testutil.CountRows(t, store, "messages"))

	send(t, bob, realtime.EventTyping, realtime.TypingData{ChannelID: "ch_general", UserID: "usr_bob", Username: "bob"})
	env := readEnvelope(t, alice)
	require.Equal(t, realtime.EventUserTyping, env.Type)
	var typing realtime.TypingData
	require.NoError(t, json.Unmarshal(env.Data, &typing))
	assert.Equal(t, "bob", typing.Username)
	assert.Empty(t, typing.ChannelID)

	// Bob's next frame is his own error reply, not his typing echo.
	send(t, bob, realtime.EventSendMessage, map[string]string{"channelId": "ch_general"})
	env = readEnvelope(t, bob)
	require.Equal(t, realtime.EventError, env.Type)
	var errData realtime.ErrorData
	require.NoError(t, json.Unmarshal(env.Data, &errData))
	assert.Equal(t, "Failed to send message", errData.Message)

	require.NoError(t, outsider.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := outsider.ReadMessage()
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestWebSocket_ConnectionLimit(t *testing.T) {
	srv, app, _ := newTestServer(t, func(cfg *config.Config) { cfg.WSMaxConnections = 1 })
	url := startLive(t, srv, app)

	dial(t, url)
	require.Eventually(t, func() bool { return srv.hub.ConnectionCount() == 1 },
		3*time.Second, 10*time.Millisecond)

	rejected := dial(t, url)
	require.NoError(t, rejected.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := rejected.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
}
