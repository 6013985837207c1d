// Package testhelpers provides common utilities for testing the Ripple relay.
//
// It contains reusable helpers shared across integration tests: standing up a
// fully wired relay on an httptest server, dialing WebSocket clients against
// it, and reading typed events off the wire with timeouts.
package testhelpers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/usayd/ripple-chat/internal/server"
)

// Event mirrors the relay's outbound event envelope for assertions.
type Event struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Count    int             `json:"count"`
	Users    []string        `json:"users"`
	Username string          `json:"username"`
	IsTyping bool            `json:"isTyping"`
	Data     json.RawMessage `json:"data"`
}

// StubGifLookup is a canned GifLookupClient for tests. An empty URL plus nil
// error reads as "no result" to the processor.
type StubGifLookup struct {
	URL string
	Err error
}

// Lookup implements server.GifLookup.
func (s StubGifLookup) Lookup(context.Context, string) (string, error) {
	return s.URL, s.Err
}

// NewRelayServer stands up a complete relay (registry, history, hub,
// processor, routes) on an httptest server. The hub's Run loop is started and
// everything is torn down via t.Cleanup.
func NewRelayServer(t *testing.T, cfg *server.Config, gifs server.GifLookup) (*httptest.Server, *server.Hub) {
	t.Helper()

	if cfg == nil {
		cfg = server.NewConfig()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })

	if gifs == nil {
		gifs = StubGifLookup{}
	}

	hub := server.NewHub()
	hub.SetProcessor(server.NewProcessor(
		hub,
		server.NewRegistry(),
		server.NewHistory(cfg.HistoryCapacity),
		gifs,
	))
	go hub.Run()
	t.Cleanup(func() { _ = hub.Shutdown(2 * time.Second) })

	ts := httptest.NewServer(server.SetupRoutes(hub, cfg.StaticDir))
	t.Cleanup(ts.Close)

	return ts, hub
}

// Dial opens a WebSocket client against the relay's /ws endpoint.
func Dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": {"http://localhost:8080"}}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// Send marshals payload and writes it as one text frame.
func Send(t *testing.T, conn *websocket.Conn, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Failed to write payload: %v", err)
	}
}

// ReadEvent reads the next event frame, failing the test after timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) Event {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Failed to decode event %q: %v", data, err)
	}
	return ev
}

// WaitForEvent reads events until one of the wanted type arrives, skipping
// interleaved presence and typing noise.
func WaitForEvent(t *testing.T, conn *websocket.Conn, wantType string, timeout time.Duration) Event {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for %q event", wantType)
		}
		ev := ReadEvent(t, conn, remaining)
		if ev.Type == wantType {
			return ev
		}
	}
}

// WaitForPresence reads events until an online snapshot with the wanted
// registered-user count arrives. Useful as a barrier: once seen, every prior
// registration has committed.
func WaitForPresence(t *testing.T, conn *websocket.Conn, count int, timeout time.Duration) Event {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for presence count %d", count)
		}
		ev := ReadEvent(t, conn, remaining)
		if ev.Type == "online" && ev.Count == count {
			return ev
		}
	}
}

// ExpectNoEvent asserts that nothing arrives for the given window.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no event, got %q", data)
	}
}
