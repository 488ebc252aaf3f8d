package tray

import "testing"

func TestStatusTitle(t *testing.T) {
	tests := []struct {
		name   string
		locked bool
		count  int
		want   string
	}{
		{name: "unlocked without shortcuts", locked: false, count: 0, want: "⏱ 🔓"},
		{name: "unlocked with shortcuts", locked: false, count: 3, want: "⏱ 🔓 3"},
		{name: "locked", locked: true, count: 1, want: "⏱ 🔒 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusTitle(tt.locked, tt.count); got != tt.want {
				t.Errorf("statusTitle(%v, %d) = %q, want %q", tt.locked, tt.count, got, tt.want)
			}
		})
	}
}

func TestShortcutCountLabel(t *testing.T) {
	tests := map[int]string{
		0: "No global shortcuts",
		1: "1 global shortcut",
		6: "6 global shortcuts",
	}
	for n, want := range tests {
		if got := shortcutCountLabel(n); got != want {
			t.Errorf("shortcutCountLabel(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestLastActionLabel(t *testing.T) {
	if got := lastActionLabel(""); got != "Last: none" {
		t.Errorf("lastActionLabel(\"\") = %q", got)
	}
	if got := lastActionLabel("reset #2"); got != "Last: reset #2" {
		t.Errorf("lastActionLabel = %q", got)
	}
}

func TestFormatShortcuts(t *testing.T) {
	got := formatShortcuts("Ctrl+Shift+L", []string{"Ctrl+Alt+1", "Alt+Space"})
	want := "Ctrl+Shift+L (lock)\nCtrl+Alt+1\nAlt+Space\n"
	if got != want {
		t.Errorf("formatShortcuts() = %q, want %q", got, want)
	}

	if got := formatShortcuts("Ctrl+Shift+L", nil); got != "Ctrl+Shift+L (lock)\n" {
		t.Errorf("formatShortcuts(nil) = %q", got)
	}
}

func TestStatusUpdatesBeforeReady(t *testing.T) {
	u := &UI{}
	// Must not touch systray before onReady.
	u.SetLocked(true)
	u.SetShortcutCount(4)
	u.SetLastAction("toggle #1")

	if !u.locked || u.count != 4 || u.lastAction != "toggle #1" {
		t.Errorf("state = %v %d %q", u.locked, u.count, u.lastAction)
	}
}
