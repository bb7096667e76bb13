package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// Routes returns the gateway's HTTP mux: the WebSocket endpoint plus a
// small REST surface over the latest values in Redis.
func (h *Hub) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/api/book/", h.handleBook)
	mux.HandleFunc("/api/indicators/", h.handleIndicators)
	mux.HandleFunc("/api/latest", h.handleLatest)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade error: %v", err)
		return
	}
	h.Register(conn)
}

// GET /api/book/{symbol} - latest book snapshot from Redis.
func (h *Hub) handleBook(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/api/book/")
	if symbol == "" {
		http.Error(w, `{"error":"symbol required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data, err := h.rdb.Get(ctx, "mdproc:book:latest:"+symbol).Bytes()
	if err == goredis.Nil {
		http.Error(w, `{"error":"no snapshot for symbol"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"redis unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, data)
}

// GET /api/indicators/{symbol} - latest value of every indicator the
// processor has published for the symbol.
func (h *Hub) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/api/indicators/")
	if symbol == "" {
		http.Error(w, `{"error":"symbol required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	prefix := "mdproc:ind:latest:" + symbol + ":"
	out := make(map[string]json.RawMessage)

	var cursor uint64
	for {
		keys, next, err := h.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			http.Error(w, `{"error":"redis unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		for _, key := range keys {
			data, err := h.rdb.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			out[strings.TrimPrefix(key, prefix)] = data
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	body, err := json.Marshal(out)
	if err != nil {
		http.Error(w, `{"error":"marshal failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, body)
}

// GET /api/latest - everything currently in the hub's in-memory cache.
func (h *Hub) handleLatest(w http.ResponseWriter, _ *http.Request) {
	body, err := json.Marshal(h.LatestAll())
	if err != nil {
		http.Error(w, `{"error":"marshal failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, body)
}

func (h *Hub) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body, _ := json.Marshal(map[string]any{
		"status":  "ok",
		"service": "gateway",
		"clients": h.ClientCount(),
	})
	writeJSON(w, body)
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(body)
}
