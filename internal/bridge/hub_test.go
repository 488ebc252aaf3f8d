package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/petems/chronoghost/internal/events"
)

const testListenAddr = "127.0.0.1:0"

// waitForCondition polls fn every 10ms until it returns true or the timeout
// expires.
func waitForCondition(t *testing.T, timeout time.Duration, fn func() bool) bool {
	t.Helper()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-ticker.C:
			if fn() {
				return true
			}
		case <-deadline.C:
			return false
		}
	}
}

func startHub(t *testing.T, handler Handler) *Hub {
	t.Helper()
	hub := NewHub(HubOptions{Addr: testListenAddr, Handler: handler, Logger: zerolog.Nop()})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { hub.Stop() })
	return hub
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(hub.URL(), nil)
	if err != nil {
		t.Fatalf("failed to dial hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if !waitForCondition(t, 2*time.Second, hub.HasActiveConnection) {
		t.Fatal("timed out waiting for hub to register connection")
	}
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON from hub %s: %v", data, err)
	}
	return out
}

func sendText(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

func TestHubStartTwice(t *testing.T) {
	hub := startHub(t, nil)
	if err := hub.Start(context.Background()); err == nil {
		t.Fatal("expected error on second Start")
	}
}

func TestHubCommandReply(t *testing.T) {
	var gotCommand string
	var gotArgs json.RawMessage
	hub := startHub(t, HandlerFunc(func(ctx context.Context, command string, args json.RawMessage) (any, error) {
		gotCommand, gotArgs = command, args
		return map[string]int{"registered": 2}, nil
	}))
	conn := dialHub(t, hub)

	sendText(t, conn, `{"id":"42","command":"update_global_shortcuts","args":{"keybindsJson":"{}"}}`)
	reply := readJSON(t, conn)

	if reply["type"] != "reply" || reply["id"] != "42" || reply["ok"] != true {
		t.Fatalf("reply = %v", reply)
	}
	result, _ := reply["result"].(map[string]any)
	if result["registered"] != float64(2) {
		t.Errorf("result = %v", reply["result"])
	}
	if gotCommand != CmdUpdateShortcuts || string(gotArgs) != `{"keybindsJson":"{}"}` {
		t.Errorf("handler saw %q %s", gotCommand, gotArgs)
	}
}

func TestHubCommandError(t *testing.T) {
	hub := startHub(t, HandlerFunc(func(ctx context.Context, command string, args json.RawMessage) (any, error) {
		return nil, errors.New("failed to parse keybinds")
	}))
	conn := dialHub(t, hub)

	sendText(t, conn, `{"id":"1","command":"update_global_shortcuts"}`)
	reply := readJSON(t, conn)

	if reply["ok"] != false || reply["error"] != "failed to parse keybinds" {
		t.Fatalf("reply = %v", reply)
	}
}

func TestHubInvalidFrame(t *testing.T) {
	hub := startHub(t, nil)
	conn := dialHub(t, hub)

	sendText(t, conn, `not json`)
	msg := readJSON(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("message = %v", msg)
	}

	// The connection survives a bad frame.
	sendText(t, conn, `{"id":"9","command":"list_global_shortcuts"}`)
	reply := readJSON(t, conn)
	if reply["type"] != "reply" || reply["error"] != "no command handler" {
		t.Fatalf("reply = %v", reply)
	}
}

func TestHubPublish(t *testing.T) {
	hub := startHub(t, nil)
	conn := dialHub(t, hub)

	hub.Publish(events.Event{Name: events.TimerAction, Payload: events.TimerActionPayload{Action: "reset", Slot: 1}})
	msg := readJSON(t, conn)
	if msg["type"] != "event" || msg["event"] != "timer-action" {
		t.Fatalf("message = %v", msg)
	}
	payload, _ := msg["payload"].([]any)
	if len(payload) != 2 || payload[0] != "reset" || payload[1] != float64(1) {
		t.Errorf("payload = %v", msg["payload"])
	}

	hub.Publish(events.Event{Name: events.ToggleLock})
	msg = readJSON(t, conn)
	if msg["event"] != "toggle-lock" || msg["payload"] != nil {
		t.Errorf("message = %v", msg)
	}
}

func TestHubPublishWithoutClient(t *testing.T) {
	hub := startHub(t, nil)
	hub.Publish(events.Event{Name: events.ToggleLock})
	if hub.HasActiveConnection() {
		t.Fatal("unexpected connection")
	}
}

func TestHubNewConnectionReplacesOld(t *testing.T) {
	hub := startHub(t, nil)
	first := dialHub(t, hub)
	second := dialHub(t, hub)

	if err := first.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("expected the replaced connection to be closed")
	}

	hub.Publish(events.Event{Name: events.ToggleLock})
	if msg := readJSON(t, second); msg["event"] != "toggle-lock" {
		t.Errorf("second connection got %v", msg)
	}
}

func TestHubStopIsIdempotent(t *testing.T) {
	hub := startHub(t, nil)
	conn := dialHub(t, hub)

	if err := hub.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := hub.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if hub.HasActiveConnection() {
		t.Error("connection still active after Stop")
	}
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected client read to fail after Stop")
	}
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	var calls atomic.Int32
	hub := NewHub(HubOptions{
		Addr: testListenAddr,
		Handler: HandlerFunc(func(ctx context.Context, command string, args json.RawMessage) (any, error) {
			calls.Add(1)
			return nil, nil
		}),
		Logger:         zerolog.Nop(),
		AllowedOrigins: []string{"tauri://localhost"},
	})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { hub.Stop() })

	ui := dialHub(t, hub)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(hub.URL(), header)
	if err == nil {
		conn.Close()
		t.Fatal("expected handshake from foreign origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	// The UI connection is untouched and still served.
	sendText(t, ui, `{"id":"1","command":"list_global_shortcuts"}`)
	if reply := readJSON(t, ui); reply["ok"] != true {
		t.Fatalf("reply = %v", reply)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("handler calls = %d, want 1", n)
	}
}

func TestHubAcceptsAllowedOrigin(t *testing.T) {
	hub := NewHub(HubOptions{
		Addr:           testListenAddr,
		Logger:         zerolog.Nop(),
		AllowedOrigins: []string{"tauri://localhost"},
	})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { hub.Stop() })

	header := http.Header{"Origin": []string{"TAURI://localhost"}}
	conn, _, err := websocket.DefaultDialer.Dial(hub.URL(), header)
	if err != nil {
		t.Fatalf("Dial with allowed origin: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if !waitForCondition(t, 2*time.Second, hub.HasActiveConnection) {
		t.Fatal("allowed origin was not registered")
	}
}
