// Package keybind holds the keybind configuration handed over by the UI and
// the canonical shortcut encoding used as the OS hotkey identifier.
package keybind

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Keybind is one key plus its ordered modifier tokens, as captured by the UI.
type Keybind struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
}

// HasModifiers reports whether the binding carries at least one modifier token.
// Unmodified keys are never promoted to global hotkeys.
func (k Keybind) HasModifiers() bool {
	return len(k.Modifiers) > 0
}

// SlotKeybinds are the bindings of one timer slot. The slot is identified only
// by its position in Config.TimerSlots.
type SlotKeybinds struct {
	Toggle *Keybind `json:"toggle,omitempty"`
	Reset  *Keybind `json:"reset,omitempty"`
}

// SelectedKeybinds act on whichever timer is currently selected in the UI.
type SelectedKeybinds struct {
	Toggle *Keybind `json:"toggle,omitempty"`
	Reset  *Keybind `json:"reset,omitempty"`
}

// Config is the full keybind configuration.
type Config struct {
	TimerSlots    []SlotKeybinds   `json:"timerSlots"`
	SelectedTimer SelectedKeybinds `json:"selectedTimer"`
}

// DecodeError reports a keybind payload that could not be turned into a Config.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse keybinds: %s: %v", e.Reason, e.Err)
	}
	return "failed to parse keybinds: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// wire types keep track of required fields that encoding/json would
// otherwise silently zero.
type wireKeybind struct {
	Key       *string   `json:"key"`
	Modifiers *[]string `json:"modifiers"`
}

type wirePair struct {
	Toggle *wireKeybind `json:"toggle"`
	Reset  *wireKeybind `json:"reset"`
}

type wireConfig struct {
	TimerSlots    *[]wirePair `json:"timerSlots"`
	SelectedTimer *wirePair   `json:"selectedTimer"`
}

// Decode parses a keybind payload. Unknown fields (labels and the like) are
// ignored; missing required fields and blank keys are rejected.
func Decode(raw []byte) (Config, error) {
	var w wireConfig
	if err := json.Unmarshal(raw, &w); err != nil {
		return Config{}, &DecodeError{Reason: "invalid JSON", Err: err}
	}
	if w.TimerSlots == nil {
		return Config{}, &DecodeError{Reason: "missing field timerSlots"}
	}
	if w.SelectedTimer == nil {
		return Config{}, &DecodeError{Reason: "missing field selectedTimer"}
	}

	cfg := Config{TimerSlots: make([]SlotKeybinds, 0, len(*w.TimerSlots))}
	for i, pair := range *w.TimerSlots {
		toggle, err := pair.Toggle.decode(fmt.Sprintf("timerSlots[%d].toggle", i))
		if err != nil {
			return Config{}, err
		}
		reset, err := pair.Reset.decode(fmt.Sprintf("timerSlots[%d].reset", i))
		if err != nil {
			return Config{}, err
		}
		cfg.TimerSlots = append(cfg.TimerSlots, SlotKeybinds{Toggle: toggle, Reset: reset})
	}

	toggle, err := w.SelectedTimer.Toggle.decode("selectedTimer.toggle")
	if err != nil {
		return Config{}, err
	}
	reset, err := w.SelectedTimer.Reset.decode("selectedTimer.reset")
	if err != nil {
		return Config{}, err
	}
	cfg.SelectedTimer = SelectedKeybinds{Toggle: toggle, Reset: reset}
	return cfg, nil
}

func (w *wireKeybind) decode(path string) (*Keybind, error) {
	if w == nil {
		return nil, nil
	}
	if w.Key == nil {
		return nil, &DecodeError{Reason: "missing field " + path + ".key"}
	}
	if strings.TrimSpace(*w.Key) == "" {
		return nil, &DecodeError{Reason: path + ".key is empty"}
	}
	if w.Modifiers == nil {
		return nil, &DecodeError{Reason: "missing field " + path + ".modifiers"}
	}
	mods := make([]string, len(*w.Modifiers))
	copy(mods, *w.Modifiers)
	return &Keybind{Key: *w.Key, Modifiers: mods}, nil
}
