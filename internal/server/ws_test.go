package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/classifier"
	"github.com/ayusman/suit/internal/game"
	"github.com/ayusman/suit/internal/gesture"
)

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", hub.Clients(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ts := httptest.NewServer(hub)
	defer ts.Close()

	a := dialHub(t, ts)
	b := dialHub(t, ts)
	waitForClients(t, hub, 2)

	hub.Publish(game.Round{
		ID:      "round-1",
		Number:  1,
		Player1: classifier.Manual(gesture.Rock),
		Player2: classifier.Manual(gesture.Paper),
		Verdict: gesture.Resolve(gesture.Rock, gesture.Paper),
		Score:   game.Score{Player2: 1, Rounds: 1},
	})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("ReadJSON error = %v", err)
		}
		if event.Round == nil || event.Round.ID != "round-1" {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.Round.Verdict.Winner != gesture.Paper {
			t.Errorf("winner = %s, want paper", event.Round.Verdict.Winner)
		}
		if event.Score == nil || event.Score.Player2 != 1 {
			t.Errorf("unexpected score %+v", event.Score)
		}
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dialHub(t, ts)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// broadcasting with no clients is a no-op
	hub.Broadcast(Event{Type: "ping"})
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn := dialHub(t, ts)
	waitForClients(t, hub, 1)

	hub.Close()
	if hub.Clients() != 0 {
		t.Errorf("Clients() = %d after Close, want 0", hub.Clients())
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going away close, got %v", err)
	}

	// new clients are refused
	late := dialHub(t, ts)
	late.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := late.ReadMessage(); err == nil {
		t.Error("expected late client to be disconnected")
	}
}
