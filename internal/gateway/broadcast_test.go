package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, h *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(h.Routes())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	TS      string          `json:"ts"`
	Initial bool            `json:"initial"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Frames may coalesce several newline-separated envelopes; the
	// first is enough for these tests.
	if i := strings.IndexByte(string(msg), '\n'); i >= 0 {
		msg = msg[:i]
	}
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v (raw: %s)", err, msg)
	}
	return env
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	h := NewHub(nil)
	conn, cleanup := dialTestHub(t, h)
	defer cleanup()
	waitForClients(t, h, 1)

	payload := []byte(`{"symbol":"BTCUSD","mid":50000.5}`)
	h.broadcast("pub:book:BTCUSD", payload)

	env := readEnvelope(t, conn)
	if env.Channel != "pub:book:BTCUSD" {
		t.Errorf("channel = %q, want pub:book:BTCUSD", env.Channel)
	}
	if string(env.Data) != string(payload) {
		t.Errorf("data = %s, want %s", env.Data, payload)
	}
	if env.Initial {
		t.Error("live broadcast should not be marked initial")
	}
}

func TestHub_NewClientGetsLatestState(t *testing.T) {
	h := NewHub(nil)

	// Publish before any client connects.
	h.broadcast("pub:ind:BTCUSD:SMA_20", []byte(`{"value":50100}`))

	conn, cleanup := dialTestHub(t, h)
	defer cleanup()

	env := readEnvelope(t, conn)
	if env.Channel != "pub:ind:BTCUSD:SMA_20" {
		t.Errorf("channel = %q, want pub:ind:BTCUSD:SMA_20", env.Channel)
	}
	if !env.Initial {
		t.Error("cached state should be marked initial")
	}
}

func TestHub_ClientRemovedOnDisconnect(t *testing.T) {
	h := NewHub(nil)
	conn, cleanup := dialTestHub(t, h)
	defer cleanup()
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)
}

func TestHub_LatestAllCopies(t *testing.T) {
	h := NewHub(nil)
	h.broadcast("pub:book:ETHUSD", []byte(`{"mid":3000}`))

	latest := h.LatestAll()
	if len(latest) != 1 {
		t.Fatalf("latest entries = %d, want 1", len(latest))
	}
	if _, ok := latest["pub:book:ETHUSD"]; !ok {
		t.Error("missing pub:book:ETHUSD entry")
	}

	// Mutating the copy must not affect the hub.
	delete(latest, "pub:book:ETHUSD")
	if len(h.LatestAll()) != 1 {
		t.Error("hub cache mutated through returned copy")
	}
}
