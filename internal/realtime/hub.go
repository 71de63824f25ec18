package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/farmlink/marketplace/pkg/logger"
	"github.com/farmlink/marketplace/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	defaultBufferSize = 32
)

// Message is the JSON payload delivered to subscribers.
type Message struct {
	Stream string `json:"stream"`
	Event  string `json:"event"`
	Data   any    `json:"data,omitempty"`
}

type controlMessage struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

// Hub fans events out to the websocket connections of each user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*connection]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a realtime hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOriginOrLoopback,
		},
		log: logger.WithModule("realtime"),
	}
}

// Serve upgrades the request and streams events for userID until the client goes away.
// With no streams requested the client joins DefaultStreams.
func (h *Hub) Serve(userID string, streams []string, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	if len(streams) == 0 {
		streams = DefaultStreams()
	}

	client := newConnection(h, socket, userID)
	client.setStreams(streams, true)
	h.register(client)

	go client.writeLoop()
	client.readLoop()
}

// Publish delivers a message to every connection of userID subscribed to stream.
func (h *Hub) Publish(stream, userID string, message Message) {
	if h == nil {
		return
	}
	stream = normalizeStream(stream)
	if stream == "" || userID == "" {
		return
	}
	message.Stream = stream

	h.mu.RLock()
	targets := make([]*connection, 0, len(h.clients[userID]))
	for client := range h.clients[userID] {
		if client.listensTo(stream) {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.enqueue(message)
	}
}

// PublishToUsers delivers the same message to several users.
func (h *Hub) PublishToUsers(stream string, userIDs []string, message Message) {
	for _, userID := range userIDs {
		h.Publish(stream, userID, message)
	}
}

// ConnectionCount returns the number of open connections for userID, or all users when empty.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if userID != "" {
		return len(h.clients[userID])
	}
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}

func (h *Hub) register(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*connection]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
	metrics.RealtimeConnections.Inc()
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.clients[client.userID]
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	}
	metrics.RealtimeConnections.Dec()
}

type connection struct {
	hub    *Hub
	socket *websocket.Conn
	userID string
	send   chan Message
	done   chan struct{}
	once   sync.Once

	mu      sync.RWMutex
	streams map[string]struct{}
}

func newConnection(hub *Hub, socket *websocket.Conn, userID string) *connection {
	return &connection{
		hub:     hub,
		socket:  socket,
		userID:  userID,
		send:    make(chan Message, defaultBufferSize),
		done:    make(chan struct{}),
		streams: make(map[string]struct{}),
	}
}

func (c *connection) setStreams(streams []string, subscribe bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stream := range streams {
		stream = normalizeStream(stream)
		if !knownStream(stream) {
			continue
		}
		if subscribe {
			c.streams[stream] = struct{}{}
		} else {
			delete(c.streams, stream)
		}
	}
}

func (c *connection) listensTo(stream string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.streams[stream]
	return ok
}

// enqueue drops slow consumers instead of blocking publishers.
func (c *connection) enqueue(message Message) {
	select {
	case <-c.done:
	case c.send <- message:
	default:
		c.hub.log.Warn("dropping slow client", zap.String("user_id", c.userID))
		c.close()
	}
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("unexpected close", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
		if len(payload) == 0 {
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			c.hub.log.Debug("invalid control payload", zap.String("user_id", c.userID), zap.Error(err))
			continue
		}

		switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
		case "subscribe":
			c.setStreams(ctrl.Streams, true)
		case "unsubscribe":
			c.setStreams(ctrl.Streams, false)
		case "ping":
			c.enqueue(Message{Event: "pong"})
		default:
			c.hub.log.Debug("unsupported control action", zap.String("user_id", c.userID), zap.String("action", ctrl.Action))
		}
	}
}

func (c *connection) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.socket.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case message := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.done)
		_ = c.socket.Close()
	})
}

func sameOriginOrLoopback(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := hostWithoutPort(parsed.Host)
	return originHost == hostWithoutPort(r.Host) || isLoopback(originHost)
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}

func knownStream(stream string) bool {
	return stream == StreamNotifications || stream == StreamMessages
}
