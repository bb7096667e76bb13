// Package feed provides a WebSocket ingest client that connects to a
// tick server (e.g. cmd/tickserver) and feeds trade ticks and depth
// updates into the processor pipeline.
//
// The wire format is one JSON Message per WebSocket text frame; see
// Message for the shape. The feed layer does no validation beyond
// parsing; non-finite prices are rejected further down, at the book
// and indicator boundaries.
package feed

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"mdprocessor/internal/model"
)

// Message is the wire envelope broadcast by the tick server.
type Message struct {
	Type   string     `json:"type"` // "tick" | "depth"
	Symbol string     `json:"symbol"`
	Side   model.Side `json:"side,omitempty"` // depth only
	Price  float64    `json:"price"`
	Qty    float64    `json:"qty"`
	TS     time.Time  `json:"ts"`
}

// Config holds configuration for the WS ingest.
type Config struct {
	// URL of the tick WebSocket server, e.g. "ws://localhost:9001/ws"
	URL string

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds if zero.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 30s.
	MaxReconnectDelay time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// Ingest connects to the tick server and pushes parsed messages into
// the tick and depth channels.
type Ingest struct {
	cfg Config

	// Optional hooks for metrics/health.
	OnReconnect func()
	OnConnected func()
}

// New creates a new Ingest. Returns an error if the URL is unparseable.
func New(cfg Config) (*Ingest, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, err
	}
	return &Ingest{cfg: cfg}, nil
}

// Start connects to the WebSocket and streams messages into the
// channels. Blocks until ctx is cancelled. Reconnects automatically on
// disconnect with exponential backoff.
func (ing *Ingest) Start(ctx context.Context, tickCh chan<- model.Tick, depthCh chan<- model.DepthUpdate) error {
	delay := ing.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := ing.runOnce(ctx, tickCh, depthCh)
		if err == nil {
			// Context cancelled cleanly
			return nil
		}

		log.Printf("[feed] disconnected (%v), reconnecting in %s...", err, delay)
		if ing.OnReconnect != nil {
			ing.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		// Exponential backoff
		delay *= 2
		if delay > ing.cfg.MaxReconnectDelay {
			delay = ing.cfg.MaxReconnectDelay
		}
	}
}

// runOnce makes a single connection attempt and reads until disconnect
// or ctx cancel.
func (ing *Ingest) runOnce(ctx context.Context, tickCh chan<- model.Tick, depthCh chan<- model.DepthUpdate) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ing.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("[feed] connected to %s", ing.cfg.URL)
	if ing.OnConnected != nil {
		ing.OnConnected()
	}

	// Context watcher: closes the connection when ctx is cancelled.
	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[feed] parse error: %v (raw: %s)", err, raw)
			continue
		}
		if msg.Symbol == "" {
			log.Println("[feed] skipping message with empty symbol")
			continue
		}

		switch msg.Type {
		case "tick":
			select {
			case tickCh <- model.Tick{Symbol: msg.Symbol, Price: msg.Price, Qty: msg.Qty, TS: msg.TS}:
			default:
				log.Println("[feed] tickCh full, dropping tick")
			}
		case "depth":
			if msg.Side != model.Bid && msg.Side != model.Ask {
				log.Printf("[feed] skipping depth update with bad side %q", msg.Side)
				continue
			}
			select {
			case depthCh <- model.DepthUpdate{Symbol: msg.Symbol, Side: msg.Side, Price: msg.Price, Qty: msg.Qty, TS: msg.TS}:
			default:
				log.Println("[feed] depthCh full, dropping update")
			}
		default:
			log.Printf("[feed] skipping unknown message type %q", msg.Type)
		}
	}
}
