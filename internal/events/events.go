// Package events carries hotkey notifications to the UI layer.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Event names published to the UI.
const (
	TimerAction = "timer-action"
	ToggleLock  = "toggle-lock"
)

// Timer action tags.
const (
	ActionToggle         = "toggle"
	ActionReset          = "reset"
	ActionToggleSelected = "toggle-selected"
	ActionResetSelected  = "reset-selected"
)

// TimerActionPayload is the payload of a timer-action event. Selected-timer
// actions carry slot 0 as a placeholder.
type TimerActionPayload struct {
	Action string
	Slot   int
}

// MarshalJSON encodes the payload as the [action, slot] pair the UI expects.
func (p TimerActionPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Action, p.Slot})
}

// UnmarshalJSON accepts the [action, slot] pair.
func (p *TimerActionPayload) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("timer-action payload must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &p.Action); err != nil {
		return fmt.Errorf("timer-action action: %w", err)
	}
	if err := json.Unmarshal(pair[1], &p.Slot); err != nil {
		return fmt.Errorf("timer-action slot: %w", err)
	}
	return nil
}

// Event is one published notification. Payload is nil for toggle-lock.
type Event struct {
	Name    string
	Payload any
}

// Emitter publishes events to the UI.
type Emitter interface {
	Emit(name string, payload any)
}

// Bus is an in-process Emitter fanning events out to subscribers. Handlers
// run synchronously on the emitting goroutine, usually a hotkey listener.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn func(Event)
}

// NewBus returns a bus with no subscribers.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function removing it again.
func (b *Bus) Subscribe(fn func(Event)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, sub := range b.subs {
				if sub.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit delivers the event to every current subscriber in subscription order.
func (b *Bus) Emit(name string, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	ev := Event{Name: name, Payload: payload}
	for _, sub := range subs {
		sub.fn(ev)
	}
}
