// cmd/tickserver: Demo WebSocket market data server.
// Broadcasts simulated trade ticks and L2 depth updates for testing the
// processor without a real exchange connection.
//
// Each frame is one JSON feed.Message:
//
//	{"type":"tick","symbol":"BTCUSD","price":50012.4,"qty":0.35,"ts":"..."}
//	{"type":"depth","symbol":"BTCUSD","side":"bid","price":50010.0,"qty":1.2,"ts":"..."}
//
// Depth updates random-walk a band of levels around the simulated
// price; qty 0 removes a level, so books downstream churn realistically.
//
// Config (env vars):
//
//	TICK_SERVER_ADDR   listen address  (default: ":9001")
//	TICK_SYMBOLS       comma-separated symbols (default: "BTCUSD,ETHUSD")
//	TICK_INTERVAL_MS   broadcast interval milliseconds (default: "100")
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mdprocessor/internal/feed"
	"mdprocessor/internal/model"
)

// instrument holds per-symbol simulation state.
type instrument struct {
	Symbol string
	Price  float64 // current simulated mid price
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client, drop frame
		}
	}
}

// ─── WebSocket handler ────────────────────────────────────────────────────────

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[tickserver] upgrade error: %v", err)
			return
		}
		log.Printf("[tickserver] client connected: %s", r.RemoteAddr)

		ch := h.register(conn)
		defer func() {
			h.unregister(conn)
			conn.Close()
			log.Printf("[tickserver] client disconnected: %s", r.RemoteAddr)
		}()

		// Write pump: sends frames to this client.
		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// ─── Generator ───────────────────────────────────────────────────────────────

// walkPrice applies a tiny random walk (±0.1%) to simulate price movement.
func walkPrice(rng *rand.Rand, price float64) float64 {
	pct := (rng.Float64()*0.2 - 0.1) / 100.0
	next := price * (1 + pct)
	if next < 0.01 {
		next = 0.01
	}
	return next
}

func runGenerator(h *hub, instruments []instrument, intervalMs int) {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for range ticker.C {
		now := time.Now().UTC()
		for i := range instruments {
			inst := &instruments[i]
			inst.Price = walkPrice(rng, inst.Price)

			h.broadcast(marshal(feed.Message{
				Type:   "tick",
				Symbol: inst.Symbol,
				Price:  round2(inst.Price),
				Qty:    round2(rng.Float64()*2 + 0.01),
				TS:     now,
			}))

			// A couple of depth changes per tick: a level within 10
			// ticks of the touch gets a new size, or is pulled (~20%).
			for j := 0; j < 2; j++ {
				side := model.Bid
				offset := -float64(rng.Intn(10)+1) * 0.5
				if rng.Intn(2) == 0 {
					side = model.Ask
					offset = -offset
				}
				qty := round2(rng.Float64()*5 + 0.1)
				if rng.Intn(5) == 0 {
					qty = 0 // pull the level
				}
				h.broadcast(marshal(feed.Message{
					Type:   "depth",
					Symbol: inst.Symbol,
					Side:   side,
					Price:  round2(inst.Price + offset),
					Qty:    qty,
					TS:     now,
				}))
			}
		}
	}
}

func marshal(m feed.Message) []byte {
	b, _ := json.Marshal(m)
	return b
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// ─── main ─────────────────────────────────────────────────────────────────────

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tickserver] starting demo tick server...")

	addr := envOrDefault("TICK_SERVER_ADDR", ":9001")
	symbolsEnv := envOrDefault("TICK_SYMBOLS", "BTCUSD,ETHUSD")
	intervalMs := envIntOrDefault("TICK_INTERVAL_MS", 100)

	instruments := parseInstruments(symbolsEnv)
	if len(instruments) == 0 {
		log.Fatalf("[tickserver] no symbols configured via TICK_SYMBOLS")
	}
	log.Printf("[tickserver] instruments: %+v", instruments)
	log.Printf("[tickserver] broadcast interval: %dms", intervalMs)

	h := newHub()
	go runGenerator(h, instruments, intervalMs)

	http.HandleFunc("/ws", wsHandler(h))
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"tickserver"}`)
	})

	log.Printf("[tickserver] listening on %s  (WebSocket: ws://localhost%s/ws)", addr, addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("[tickserver] server error: %v", err)
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func parseInstruments(s string) []instrument {
	// Plausible starting prices for well-known symbols.
	defaultPrices := map[string]float64{
		"BTCUSD": 50000,
		"ETHUSD": 3000,
		"SOLUSD": 150,
	}

	var result []instrument
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		price := defaultPrices[part]
		if price == 0 {
			price = 100
		}
		result = append(result, instrument{Symbol: part, Price: price})
	}
	return result
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
