package cable

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type recorder struct {
	connected    chan struct{}
	disconnected chan string
	messages     chan json.RawMessage
}

func newRecorder() *recorder {
	return &recorder{
		connected:    make(chan struct{}, 4),
		disconnected: make(chan string, 4),
		messages:     make(chan json.RawMessage, 8),
	}
}

func (r *recorder) OnConnect()                     { r.connected <- struct{}{} }
func (r *recorder) OnDisconnect(reason string)     { r.disconnected <- reason }
func (r *recorder) OnMessage(data json.RawMessage) { r.messages <- data }

// cableServer speaks just enough of the ActionCable protocol for tests.
// The n-th connection runs scripts[n] (the last script for any later one)
// after its subscription has been confirmed.
func cableServer(t *testing.T, scripts ...func(conn *websocket.Conn, identifier string)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}

	var (
		mu    sync.Mutex
		count int
	)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "api-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		mu.Lock()
		script := scripts[min(count, len(scripts)-1)]
		count++
		mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		if err := conn.WriteJSON(map[string]string{"type": "welcome"}); err != nil {
			t.Errorf("write welcome: %v", err)
			return
		}

		var cmd command
		if err := conn.ReadJSON(&cmd); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if cmd.Command != "subscribe" {
			t.Errorf("command = %q", cmd.Command)
		}
		if !strings.Contains(cmd.Identifier, `"RoomChannel"`) {
			t.Errorf("identifier = %q", cmd.Identifier)
		}

		conn.WriteJSON(map[string]string{"type": "confirm_subscription", "identifier": cmd.Identifier})

		script(conn, cmd.Identifier)
	}))
}

// drain keeps a server connection open until the client goes away.
func drain(conn *websocket.Conn, _ string) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/rt?room_id=room-1"
}

func testOptions(server *httptest.Server) Options {
	header := http.Header{}
	header.Set("Authorization", "api-key")

	return Options{
		URL:            wsURL(server),
		Header:         header,
		Channel:        "RoomChannel",
		ReconnectDelay: 10 * time.Millisecond,
		Logger:         zerolog.Nop(),
	}
}

func dialTest(t *testing.T, server *httptest.Server, h Handler) *Cable {
	t.Helper()

	c, err := Dial(context.Background(), testOptions(server), h)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return c
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestSubscribeAndReceive(t *testing.T) {
	server := cableServer(t, func(conn *websocket.Conn, identifier string) {
		conn.WriteJSON(map[string]any{"type": "ping", "message": 1700000000})
		conn.WriteJSON(map[string]any{
			"identifier": identifier,
			"message":    map[string]any{"type": "room_update", "content": map[string]any{"ready": true}},
		})
		conn.WriteJSON(map[string]any{
			"identifier": `{"channel":"OtherChannel"}`,
			"message":    map[string]any{"type": "ignored"},
		})
		conn.WriteJSON(map[string]any{"type": "disconnect", "reason": "unauthorized", "reconnect": false})
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	rec := newRecorder()
	c := dialTest(t, server, rec)

	waitFor(t, rec.connected, "connect")

	msg := waitFor(t, rec.messages, "message")
	var decoded struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &decoded); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if decoded.Type != "room_update" {
		t.Errorf("message type = %q", decoded.Type)
	}

	if reason := waitFor(t, rec.disconnected, "disconnect"); reason != ReasonUnauthorized {
		t.Errorf("reason = %q, want %q", reason, ReasonUnauthorized)
	}

	waitFor(t, c.Done(), "done")

	select {
	case extra := <-rec.messages:
		t.Errorf("message from another channel delivered: %s", extra)
	default:
	}
}

func TestRejectedSubscription(t *testing.T) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]string{"type": "welcome"})
		var cmd command
		conn.ReadJSON(&cmd)
		conn.WriteJSON(map[string]string{"type": "reject_subscription", "identifier": cmd.Identifier})
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	rec := newRecorder()
	dialTest(t, server, rec)

	if reason := waitFor(t, rec.disconnected, "disconnect"); reason != ReasonRejected {
		t.Errorf("reason = %q, want %q", reason, ReasonRejected)
	}
}

func TestLocalDisconnect(t *testing.T) {
	server := cableServer(t, drain)
	defer server.Close()

	rec := newRecorder()
	c := dialTest(t, server, rec)
	waitFor(t, rec.connected, "connect")

	c.Disconnect()
	c.Disconnect()

	if reason := waitFor(t, rec.disconnected, "disconnect"); reason != ReasonClosed {
		t.Errorf("reason = %q, want %q", reason, ReasonClosed)
	}
	waitFor(t, c.Done(), "done")
}

func TestDialUnauthorized(t *testing.T) {
	server := cableServer(t, func(*websocket.Conn, string) {})
	defer server.Close()

	_, err := Dial(context.Background(), Options{
		URL:     wsURL(server),
		Channel: "RoomChannel",
		Logger:  zerolog.Nop(),
	}, newRecorder())

	var hsErr *HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("expected *HandshakeError, got %T: %v", err, err)
	}
	if hsErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", hsErr.StatusCode)
	}
}

func TestDialRequiresChannel(t *testing.T) {
	if _, err := Dial(context.Background(), Options{URL: "ws://127.0.0.1:1"}, newRecorder()); err == nil {
		t.Fatal("expected error without channel")
	}
}

func TestReconnectAfterServerDisconnect(t *testing.T) {
	server := cableServer(t,
		func(conn *websocket.Conn, _ string) {
			conn.WriteJSON(map[string]any{"type": "disconnect", "reason": "server_restart", "reconnect": true})
		},
		func(conn *websocket.Conn, identifier string) {
			conn.WriteJSON(map[string]any{
				"identifier": identifier,
				"message":    map[string]any{"type": "room_update", "content": map[string]any{"ready": true}},
			})
			drain(conn, identifier)
		},
	)
	defer server.Close()

	rec := newRecorder()
	c := dialTest(t, server, rec)

	waitFor(t, rec.connected, "connect")
	if reason := waitFor(t, rec.disconnected, "disconnect"); reason != "server_restart" {
		t.Errorf("reason = %q, want server_restart", reason)
	}
	waitFor(t, rec.connected, "reconnect")
	waitFor(t, rec.messages, "message after reconnect")

	select {
	case <-c.Done():
		t.Fatal("cable done after a recoverable disconnect")
	default:
	}

	c.Disconnect()

	if reason := waitFor(t, rec.disconnected, "disconnect"); reason != ReasonClosed {
		t.Errorf("reason = %q, want %q", reason, ReasonClosed)
	}
	waitFor(t, c.Done(), "done")
}

func TestReconnectAfterTransportLoss(t *testing.T) {
	server := cableServer(t,
		func(*websocket.Conn, string) {},
		drain,
	)
	defer server.Close()

	rec := newRecorder()
	c := dialTest(t, server, rec)
	defer c.Disconnect()

	waitFor(t, rec.connected, "connect")
	if reason := waitFor(t, rec.disconnected, "disconnect"); reason != ReasonTransportClosed {
		t.Errorf("reason = %q, want %q", reason, ReasonTransportClosed)
	}
	waitFor(t, rec.connected, "reconnect")
}

func TestNoReconnectWhenServerForbids(t *testing.T) {
	server := cableServer(t, func(conn *websocket.Conn, _ string) {
		conn.WriteJSON(map[string]any{"type": "disconnect", "reason": "server_restart", "reconnect": false})
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	rec := newRecorder()
	c := dialTest(t, server, rec)

	if reason := waitFor(t, rec.disconnected, "disconnect"); reason != "server_restart" {
		t.Errorf("reason = %q", reason)
	}
	waitFor(t, c.Done(), "done")

	select {
	case <-rec.connected:
	default:
		t.Error("never connected")
	}
	select {
	case <-rec.connected:
		t.Error("reconnected although the server forbade it")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconnectUnauthorized(t *testing.T) {
	var (
		mu   sync.Mutex
		deny bool
	)

	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		refuse := deny
		deny = true
		mu.Unlock()

		if refuse {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	rec := newRecorder()
	c := dialTest(t, server, rec)

	if reason := waitFor(t, rec.disconnected, "disconnect"); reason != ReasonTransportClosed {
		t.Errorf("first reason = %q", reason)
	}
	if reason := waitFor(t, rec.disconnected, "disconnect"); reason != ReasonUnauthorized {
		t.Errorf("redial reason = %q, want %q", reason, ReasonUnauthorized)
	}
	waitFor(t, c.Done(), "done")
}

// closingHandler disconnects its cable from inside OnMessage.
type closingHandler struct {
	*recorder
	cable chan *Cable
}

func (h closingHandler) OnMessage(data json.RawMessage) {
	h.recorder.OnMessage(data)
	(<-h.cable).Disconnect()
}

func TestDisconnectFromHandler(t *testing.T) {
	for i := 0; i < 20; i++ {
		server := cableServer(t, func(conn *websocket.Conn, identifier string) {
			conn.WriteJSON(map[string]any{
				"identifier": identifier,
				"message":    map[string]any{"type": "room_update", "content": map[string]any{"shutdown": true}},
			})
			drain(conn, identifier)
		})

		h := closingHandler{recorder: newRecorder(), cable: make(chan *Cable, 1)}
		c := dialTest(t, server, h)
		h.cable <- c

		if reason := waitFor(t, h.disconnected, "disconnect"); reason != ReasonClosed {
			t.Errorf("reason = %q, want %q", reason, ReasonClosed)
		}
		waitFor(t, c.Done(), "done")

		server.Close()
	}
}
