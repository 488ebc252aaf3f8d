// Package shortcuts keeps OS global hotkeys in step with the keybind
// configuration and turns hotkey presses into UI events.
package shortcuts

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petems/chronoghost/internal/events"
	"github.com/petems/chronoghost/internal/hotkey"
	"github.com/petems/chronoghost/internal/keybind"
	"github.com/petems/chronoghost/internal/ledger"
)

// DefaultLockHotkey toggles the overlay lock. It is registered once at startup
// and is never part of a synchronization pass.
const DefaultLockHotkey = "CommandOrControl+Shift+L"

// Status is the outcome for one binding in a synchronization pass.
type Status string

const (
	StatusRegistered Status = "registered"
	// StatusSkipped marks a binding without modifiers; plain keys are never
	// registered system-wide.
	StatusSkipped   Status = "skipped"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
)

// Result describes what happened to one present binding.
type Result struct {
	Action   string `json:"action"`
	Slot     int    `json:"slot"`
	Shortcut string `json:"shortcut,omitempty"`
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Report summarises a synchronization pass.
type Report struct {
	Pass         string   `json:"pass"`
	Unregistered int      `json:"unregistered"`
	Results      []Result `json:"results"`
}

// Registered returns the number of bindings that are now live.
func (r Report) Registered() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusRegistered {
			n++
		}
	}
	return n
}

// Failed returns the results the backend refused.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Config wires a Synchronizer to its backend and event channel.
type Config struct {
	Hotkeys hotkey.Manager
	Ledger  *ledger.Ledger // Optional - a fresh ledger is used when nil
	Emitter events.Emitter
	Logger  zerolog.Logger
}

// Synchronizer owns the dynamic hotkey registrations.
type Synchronizer struct {
	hotkeys hotkey.Manager
	ledger  *ledger.Ledger
	emitter events.Emitter
	log     zerolog.Logger

	// passMu serializes whole passes. The ledger has its own lock, which
	// trigger dispatch uses, so presses never wait for a pass.
	passMu sync.Mutex
}

// New returns a Synchronizer with no dynamic shortcuts registered.
func New(cfg Config) *Synchronizer {
	l := cfg.Ledger
	if l == nil {
		l = ledger.New()
	}
	return &Synchronizer{
		hotkeys: cfg.Hotkeys,
		ledger:  l,
		emitter: cfg.Emitter,
		log:     cfg.Logger,
	}
}

// SynchronizeJSON decodes raw and synchronizes to it. A decode error is
// returned before any hotkey is touched.
func (s *Synchronizer) SynchronizeJSON(raw []byte) (Report, error) {
	cfg, err := keybind.Decode(raw)
	if err != nil {
		return Report{}, err
	}
	return s.Synchronize(cfg), nil
}

// binding is one candidate registration in a pass.
type binding struct {
	kb     *keybind.Keybind
	action string
	slot   int
}

// Synchronize replaces every dynamic registration with the bindings in cfg.
// All old hotkeys are released before any new one is registered. Individual
// backend failures are logged and reported but never abort the pass.
func (s *Synchronizer) Synchronize(cfg keybind.Config) Report {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	report := Report{Pass: uuid.NewString()}
	log := s.log.With().Str("pass", report.Pass).Logger()

	report.Unregistered = s.releaseAll(log)

	claimed := make(map[string]bool)
	for _, b := range bindingsOf(cfg) {
		if b.kb == nil {
			continue
		}
		report.Results = append(report.Results, s.register(log, b, claimed))
	}

	log.Info().
		Int("registered", report.Registered()).
		Int("failed", len(report.Failed())).
		Int("unregistered", report.Unregistered).
		Msg("Global shortcuts synchronized")
	return report
}

func bindingsOf(cfg keybind.Config) []binding {
	out := make([]binding, 0, 2*len(cfg.TimerSlots)+2)
	for i, slot := range cfg.TimerSlots {
		out = append(out,
			binding{kb: slot.Toggle, action: events.ActionToggle, slot: i},
			binding{kb: slot.Reset, action: events.ActionReset, slot: i},
		)
	}
	return append(out,
		binding{kb: cfg.SelectedTimer.Toggle, action: events.ActionToggleSelected},
		binding{kb: cfg.SelectedTimer.Reset, action: events.ActionResetSelected},
	)
}

func (s *Synchronizer) register(log zerolog.Logger, b binding, claimed map[string]bool) Result {
	res := Result{Action: b.action, Slot: b.slot}
	if !b.kb.HasModifiers() {
		res.Status = StatusSkipped
		log.Debug().Str("action", b.action).Int("slot", b.slot).Str("key", b.kb.Key).
			Msg("Skipping shortcut without modifiers")
		return res
	}

	id := keybind.Encode(*b.kb)
	res.Shortcut = id
	if claimed[id] {
		res.Status = StatusDuplicate
		log.Warn().Str("action", b.action).Int("slot", b.slot).Str("shortcut", id).
			Msg("Shortcut already bound earlier in this pass")
		return res
	}

	// The entry goes in first so a press arriving as soon as the OS grabs the
	// key already finds its trigger.
	if !s.ledger.Append(ledger.Entry{ID: id, Action: b.action, Slot: b.slot}) {
		res.Status = StatusDuplicate
		log.Warn().Str("action", b.action).Int("slot", b.slot).Str("shortcut", id).
			Msg("Shortcut already held")
		return res
	}

	if err := s.hotkeys.Register(id, s.trigger(id)); err != nil {
		s.ledger.Remove(id)
		res.Status = StatusFailed
		res.Error = err.Error()
		log.Warn().Err(err).Str("action", b.action).Int("slot", b.slot).Str("shortcut", id).
			Msg("Failed to register shortcut")
		return res
	}

	claimed[id] = true
	res.Status = StatusRegistered
	log.Debug().Str("action", b.action).Int("slot", b.slot).Str("shortcut", id).Msg("Registered shortcut")
	return res
}

// releaseAll drains the ledger and unregisters every drained identifier.
// Unregister failures are logged only.
func (s *Synchronizer) releaseAll(log zerolog.Logger) int {
	drained := s.ledger.Drain()
	for _, e := range drained {
		if err := s.hotkeys.Unregister(e.ID); err != nil {
			log.Warn().Err(err).Str("shortcut", e.ID).Msg("Failed to unregister shortcut")
		}
	}
	return len(drained)
}

// trigger returns the backend callback for id. What it publishes is looked
// up in the ledger at press time, so a re-bound identifier always reports its
// current slot.
func (s *Synchronizer) trigger(id string) func(pressed bool) {
	return func(pressed bool) {
		s.dispatch(id, pressed)
	}
}

func (s *Synchronizer) dispatch(id string, pressed bool) {
	if !pressed {
		return
	}
	e, ok := s.ledger.Lookup(id)
	if !ok {
		s.log.Debug().Str("shortcut", id).Msg("Ignoring press of released shortcut")
		return
	}
	s.emitter.Emit(events.TimerAction, events.TimerActionPayload{Action: e.Action, Slot: e.Slot})
}

// RegisterLockHotkey installs the static lock hotkey. It is tracked outside
// the ledger and survives every synchronization pass.
func (s *Synchronizer) RegisterLockHotkey(accel string) error {
	if accel == "" {
		accel = DefaultLockHotkey
	}
	return s.hotkeys.Register(accel, func(pressed bool) {
		if pressed {
			s.emitter.Emit(events.ToggleLock, nil)
		}
	})
}

// Clear releases every dynamic registration. The lock hotkey stays.
func (s *Synchronizer) Clear() int {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	n := s.releaseAll(s.log)
	s.log.Info().Int("unregistered", n).Msg("Global shortcuts cleared")
	return n
}

// Active returns the live dynamic shortcut identifiers in registration order.
func (s *Synchronizer) Active() []string {
	return s.ledger.IDs()
}

// Bindings returns the live registrations with their triggers.
func (s *Synchronizer) Bindings() []ledger.Entry {
	return s.ledger.Entries()
}
