// Package ledger records which shortcut identifiers are currently registered
// with the OS hotkey backend and what each one triggers.
package ledger

import "sync"

// Entry is one live registration: the canonical identifier plus the trigger
// it publishes when pressed.
type Entry struct {
	ID     string
	Action string
	Slot   int
}

// Ledger is an ordered set of entries keyed by ID. The zero value is ready to
// use. The lock is held only for the duration of a single call.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append adds e unless an entry with the same ID is already held.
// It reports whether the entry was added.
func (l *Ledger) Append(e Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.entries {
		if existing.ID == e.ID {
			return false
		}
	}
	l.entries = append(l.entries, e)
	return true
}

// Drain empties the ledger and returns what it held, in insertion order.
func (l *Ledger) Drain() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	drained := l.entries
	l.entries = nil
	return drained
}

// Lookup returns the entry registered under id.
func (l *Ledger) Lookup(id string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// IDs returns the held identifiers in insertion order.
func (l *Ledger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, len(l.entries))
	for i, e := range l.entries {
		ids[i] = e.ID
	}
	return ids
}

// Entries returns a copy of the held entries.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Remove deletes the entry held under id and reports whether there was one.
// The order of the remaining entries is preserved.
func (l *Ledger) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of held entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
