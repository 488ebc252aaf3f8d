package keybind

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// modifierNames maps lower-cased UI modifier tokens to their canonical form.
var modifierNames = map[string]string{
	"ctrl":    "Ctrl",
	"control": "Ctrl",
	"shift":   "Shift",
	"alt":     "Alt",
	"meta":    "Meta",
	"super":   "Meta",
	"cmd":     "Meta",
	"command": "Meta",
}

// Encode returns the canonical shortcut identifier for k, e.g. "Ctrl+Shift+L".
//
// Recognised modifiers keep the order of their first occurrence and repeats
// collapse into one; unrecognised tokens are dropped. A single-character key
// is upper-cased, longer names ("F1", "escape") only get their first letter
// upper-cased.
func Encode(k Keybind) string {
	parts := make([]string, 0, len(k.Modifiers)+1)
	seen := make(map[string]bool, len(k.Modifiers))
	for _, token := range k.Modifiers {
		name, ok := modifierNames[strings.ToLower(token)]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		parts = append(parts, name)
	}
	parts = append(parts, normalizeKey(k.Key))
	return strings.Join(parts, "+")
}

func normalizeKey(key string) string {
	if utf8.RuneCountInString(key) == 1 {
		return strings.ToUpper(key)
	}
	first, size := utf8.DecodeRuneInString(key)
	if first == utf8.RuneError {
		return key
	}
	return string(unicode.ToUpper(first)) + key[size:]
}
