package keybind

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		kb   Keybind
		want string
	}{
		{
			name: "ctrl shift letter",
			kb:   Keybind{Key: "l", Modifiers: []string{"ctrl", "shift"}},
			want: "Ctrl+Shift+L",
		},
		{
			name: "no modifiers",
			kb:   Keybind{Key: "a"},
			want: "A",
		},
		{
			name: "function key unchanged",
			kb:   Keybind{Key: "F1", Modifiers: []string{"alt"}},
			want: "Alt+F1",
		},
		{
			name: "named key only first letter upper-cased",
			kb:   Keybind{Key: "escape", Modifiers: []string{"ctrl"}},
			want: "Ctrl+Escape",
		},
		{
			name: "camel case name preserved",
			kb:   Keybind{Key: "pageDown", Modifiers: []string{"shift"}},
			want: "Shift+PageDown",
		},
		{
			name: "unknown modifier dropped",
			kb:   Keybind{Key: "a", Modifiers: []string{"fn", "alt"}},
			want: "Alt+A",
		},
		{
			name: "input order kept",
			kb:   Keybind{Key: "1", Modifiers: []string{"shift", "ctrl"}},
			want: "Shift+Ctrl+1",
		},
		{
			name: "case-insensitive aliases",
			kb:   Keybind{Key: "k", Modifiers: []string{"CONTROL", "Command"}},
			want: "Ctrl+Meta+K",
		},
		{
			name: "meta aliases",
			kb:   Keybind{Key: "x", Modifiers: []string{"super"}},
			want: "Meta+X",
		},
		{
			name: "repeated modifier collapses",
			kb:   Keybind{Key: "a", Modifiers: []string{"ctrl", "ctrl"}},
			want: "Ctrl+A",
		},
		{
			name: "aliases of one modifier collapse to first position",
			kb:   Keybind{Key: "a", Modifiers: []string{"control", "shift", "ctrl"}},
			want: "Ctrl+Shift+A",
		},
		{
			name: "only unknown modifiers",
			kb:   Keybind{Key: "q", Modifiers: []string{"hyper"}},
			want: "Q",
		},
		{
			name: "non-ascii single rune",
			kb:   Keybind{Key: "é", Modifiers: []string{"alt"}},
			want: "Alt+É",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.kb); got != tt.want {
				t.Errorf("Encode(%+v) = %q, want %q", tt.kb, got, tt.want)
			}
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	kb := Keybind{Key: "F5", Modifiers: []string{"meta", "alt", "fn"}}
	first := Encode(kb)
	for i := 0; i < 10; i++ {
		if got := Encode(kb); got != first {
			t.Fatalf("Encode changed between calls: %q then %q", first, got)
		}
	}
	if kb.Modifiers[2] != "fn" || len(kb.Modifiers) != 3 {
		t.Fatalf("Encode mutated its input: %v", kb.Modifiers)
	}
}
