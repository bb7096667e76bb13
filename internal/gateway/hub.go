// Package gateway fans processed market data out to WebSocket clients.
// It subscribes to the processor's Redis pub/sub channels and rebroad-
// casts every message, keeping a latest-value cache so a fresh client
// gets current state immediately on connect.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

// Channel patterns published by the processor.
const (
	bookPattern = "pub:book:*"
	indPattern  = "pub:ind:*"
)

// Hub manages WebSocket clients and Redis pub/sub fan-out.
type Hub struct {
	rdb *goredis.Client

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
}

// NewHub creates a Hub backed by the given Redis client.
func NewHub(rdb *goredis.Client) *Hub {
	return &Hub{
		rdb:     rdb,
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
	}
}

// Run subscribes to the processor's channels and routes messages to
// connected clients. Blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	pubsub := h.rdb.PSubscribe(ctx, bookPattern, indPattern)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s, %s", bookPattern, indPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}

// broadcast wraps the payload in a channel envelope, updates the latest
// cache, and fans out to every client. Slow clients drop frames rather
// than stall the hub.
func (h *Hub) broadcast(channel string, data []byte) {
	now := time.Now().UTC()
	envelope, err := json.Marshal(map[string]any{
		"channel": channel,
		"data":    json.RawMessage(data),
		"ts":      now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	h.latest[channel] = latestEntry{Data: data, TS: now}
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default: // slow client
		}
	}
}

// Register attaches a freshly upgraded connection and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn) {
	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)

	go client.sendInitialState()
	go client.writePump()
	go client.readPump()
}

// RemoveClient detaches a client and closes its send channel.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// LatestAll returns a copy of the latest payload per channel.
func (h *Hub) LatestAll() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}
