package hotkey

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	ErrEmptyAccelerator = errors.New("accelerator is empty")
	ErrUnknownModifier  = errors.New("unknown modifier")
	ErrNoModifier       = errors.New("accelerator needs at least one modifier")
)

// Modifier is a platform-neutral modifier key.
type Modifier int

const (
	ModCtrl Modifier = iota + 1
	ModShift
	ModAlt
	ModMeta // Cmd on macOS, Win on Windows, Super on Linux
)

func (m Modifier) String() string {
	switch m {
	case ModCtrl:
		return "Ctrl"
	case ModShift:
		return "Shift"
	case ModAlt:
		return "Alt"
	case ModMeta:
		return "Meta"
	default:
		return fmt.Sprintf("Modifier(%d)", int(m))
	}
}

// goos is swapped by tests to resolve CommandOrControl for other platforms.
var goos = runtime.GOOS

// Accelerator is a parsed shortcut identifier such as "Ctrl+Shift+L".
type Accelerator struct {
	Modifiers []Modifier
	Key       string
}

func (a Accelerator) String() string {
	parts := make([]string, 0, len(a.Modifiers)+1)
	for _, m := range a.Modifiers {
		parts = append(parts, m.String())
	}
	return strings.Join(append(parts, a.Key), "+")
}

// ParseAccelerator parses a "+"-joined accelerator. Modifier names are
// case-insensitive and repeated modifiers collapse. CommandOrControl resolves
// to Meta on macOS and Ctrl elsewhere. The key name is kept as given; whether
// it exists is up to the backend.
func ParseAccelerator(s string) (Accelerator, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Accelerator{}, ErrEmptyAccelerator
	}

	parts := strings.Split(raw, "+")
	key := strings.TrimSpace(parts[len(parts)-1])
	if key == "" {
		return Accelerator{}, fmt.Errorf("missing key in accelerator %q", raw)
	}

	var acc Accelerator
	seen := make(map[Modifier]bool)
	for _, token := range parts[:len(parts)-1] {
		mod, err := parseModifier(token)
		if err != nil {
			return Accelerator{}, fmt.Errorf("%w %q in accelerator %q", err, strings.TrimSpace(token), raw)
		}
		if seen[mod] {
			continue
		}
		seen[mod] = true
		acc.Modifiers = append(acc.Modifiers, mod)
	}
	if len(acc.Modifiers) == 0 {
		return Accelerator{}, fmt.Errorf("%w: %q", ErrNoModifier, raw)
	}
	acc.Key = key
	return acc, nil
}

func parseModifier(token string) (Modifier, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "ctrl", "control":
		return ModCtrl, nil
	case "shift":
		return ModShift, nil
	case "alt", "option":
		return ModAlt, nil
	case "meta", "super", "cmd", "command", "win":
		return ModMeta, nil
	case "commandorcontrol", "cmdorctrl":
		if goos == "darwin" {
			return ModMeta, nil
		}
		return ModCtrl, nil
	default:
		return 0, ErrUnknownModifier
	}
}
