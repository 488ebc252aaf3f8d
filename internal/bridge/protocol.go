// Package bridge is the UI-facing channel: a localhost WebSocket that pushes
// hotkey events to the frontend and accepts its commands.
//
// # Messages
//
// Frontend to backend (text frames):
//
//	{"id": "7", "command": "update_global_shortcuts", "args": {"keybindsJson": "..."}}
//
// Backend to frontend:
//
//	{"type": "reply", "id": "7", "ok": true, "result": {...}}
//	{"type": "event", "event": "timer-action", "payload": ["toggle", 0]}
//	{"type": "error", "message": "invalid JSON: ..."}
package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petems/chronoghost/internal/events"
)

// Command names understood by the App handler.
const (
	CmdUpdateShortcuts = "update_global_shortcuts"
	CmdListShortcuts   = "list_global_shortcuts"
	CmdClearShortcuts  = "clear_global_shortcuts"
	CmdCloseApp        = "close_app"
)

// Handler executes frontend commands. The returned value is sent back as the
// reply result; an error becomes a reply with ok=false.
type Handler interface {
	HandleCommand(ctx context.Context, command string, args json.RawMessage) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, command string, args json.RawMessage) (any, error)

func (f HandlerFunc) HandleCommand(ctx context.Context, command string, args json.RawMessage) (any, error) {
	return f(ctx, command, args)
}

type commandMsg struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

type replyMsg struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type eventMsg struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// EncodeEvent builds the frame for one published event. A nil payload is
// sent as JSON null.
func EncodeEvent(ev events.Event) ([]byte, error) {
	if ev.Name == "" {
		return nil, fmt.Errorf("bridge: encode event: name must not be empty")
	}
	return json.Marshal(eventMsg{Type: "event", Event: ev.Name, Payload: ev.Payload})
}

func decodeCommand(frame []byte) (commandMsg, error) {
	var msg commandMsg
	if err := json.Unmarshal(frame, &msg); err != nil {
		return commandMsg{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if msg.Command == "" {
		return commandMsg{}, fmt.Errorf("missing command")
	}
	return msg, nil
}
