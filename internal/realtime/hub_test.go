package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub, userID string, streams ...string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(userID, streams, w, r)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.ConnectionCount(userID) == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubPublishDeliversToUser(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "u1")

	hub.Publish(StreamMessages, "u1", Message{Event: EventUnreadCount, Data: map[string]int{"unreadCount": 2}})

	msg := readMessage(t, conn)
	require.Equal(t, StreamMessages, msg.Stream)
	require.Equal(t, EventUnreadCount, msg.Event)
	require.Equal(t, map[string]any{"unreadCount": float64(2)}, msg.Data)
}

func TestHubSkipsStreamsTheClientDidNotJoin(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "u1", StreamNotifications)

	hub.Publish(StreamMessages, "u1", Message{Event: EventMessageReceived})
	hub.Publish(StreamNotifications, "u1", Message{Event: EventNotificationCreated})

	msg := readMessage(t, conn)
	require.Equal(t, EventNotificationCreated, msg.Event)
}

func TestHubControlSubscribe(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "u1", StreamNotifications)

	require.NoError(t, conn.WriteJSON(controlMessage{Action: "subscribe", Streams: []string{"MESSAGES"}}))
	require.NoError(t, conn.WriteJSON(controlMessage{Action: "ping"}))
	require.Equal(t, "pong", readMessage(t, conn).Event)

	hub.Publish(StreamMessages, "u1", Message{Event: EventMessageReceived})
	require.Equal(t, EventMessageReceived, readMessage(t, conn).Event)
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "u1")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ConnectionCount("") == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(StreamMessages, "u1", Message{Event: EventUnreadCount})
}

func TestNilHubPublishIsNoop(t *testing.T) {
	var hub *Hub
	hub.Publish(StreamMessages, "u1", Message{})
}

func TestSameOriginOrLoopback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.farmlink.in/ws", nil)
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "https://api.farmlink.in")
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "http://localhost:3000")
	require.True(t, sameOriginOrLoopback(req))

	req.Header.Set("Origin", "https://evil.example.com")
	require.False(t, sameOriginOrLoopback(req))
}
