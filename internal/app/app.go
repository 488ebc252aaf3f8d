package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/chronoghost/internal/bridge"
	"github.com/petems/chronoghost/internal/config"
	"github.com/petems/chronoghost/internal/events"
	"github.com/petems/chronoghost/internal/shortcuts"
)

// ErrNotStarted is returned for UI commands that arrive before Start has
// installed the lock hotkey.
var ErrNotStarted = errors.New("app not started")

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetLocked(locked bool)
	SetShortcutCount(n int)
	SetLastAction(action string)
}

type Config struct {
	Shortcuts     *shortcuts.Synchronizer
	Bus           *events.Bus
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
	Quit          func()        // Optional - called for close_app
}

type App struct {
	syncer *shortcuts.Synchronizer
	bus    *events.Bus
	cfg    *config.Config
	log    zerolog.Logger
	status StatusUpdater
	quit   func()

	mu          sync.Mutex
	started     bool
	locked      bool
	lastApplied []byte
	unsubscribe func()
}

func New(cfg Config) *App {
	return &App{
		syncer: cfg.Shortcuts,
		bus:    cfg.Bus,
		cfg:    cfg.Config,
		log:    cfg.Logger,
		status: cfg.StatusUpdater,
		quit:   cfg.Quit,
	}
}

// SetStatusUpdater sets the status sink (for circular dependency resolution
// with the tray).
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

func (a *App) statusUpdater() StatusUpdater {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Start installs the lock hotkey, follows bus events for the status display
// and applies the keybinds file if one exists. Only a lock hotkey failure is
// returned; a bad or missing keybinds file is logged.
func (a *App) Start() error {
	if err := a.syncer.RegisterLockHotkey(a.cfg.LockHotkey); err != nil {
		return fmt.Errorf("register lock hotkey %q: %w", a.cfg.LockHotkey, err)
	}
	a.log.Info().Str("hotkey", a.cfg.LockHotkey).Msg("Lock hotkey registered")

	cancel := a.bus.Subscribe(a.onEvent)
	a.mu.Lock()
	a.unsubscribe = cancel
	a.mu.Unlock()

	if _, err := a.ReloadKeybinds(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.log.Info().Str("path", a.cfg.KeybindsFile).Msg("No keybinds file, waiting for the UI")
		} else {
			a.log.Warn().Err(err).Str("path", a.cfg.KeybindsFile).Msg("Failed to apply keybinds file")
		}
	}

	a.mu.Lock()
	a.started = true
	a.mu.Unlock()
	return nil
}

func (a *App) onEvent(ev events.Event) {
	switch ev.Name {
	case events.ToggleLock:
		a.mu.Lock()
		a.locked = !a.locked
		locked := a.locked
		status := a.status
		a.mu.Unlock()

		a.log.Info().Bool("locked", locked).Msg("Lock toggled")
		if status != nil {
			status.SetLocked(locked)
		}
	case events.TimerAction:
		p, ok := ev.Payload.(events.TimerActionPayload)
		if !ok {
			return
		}
		a.log.Debug().Str("action", p.Action).Int("slot", p.Slot).Msg("Timer action")
		if status := a.statusUpdater(); status != nil {
			status.SetLastAction(describeAction(p))
		}
	}
}

func describeAction(p events.TimerActionPayload) string {
	switch p.Action {
	case events.ActionToggleSelected, events.ActionResetSelected:
		return p.Action
	default:
		return fmt.Sprintf("%s #%d", p.Action, p.Slot+1)
	}
}

// UpdateShortcuts replaces the dynamic shortcuts with the keybinds in raw.
func (a *App) UpdateShortcuts(raw []byte) (shortcuts.Report, error) {
	report, err := a.syncer.SynchronizeJSON(raw)
	if err != nil {
		return report, err
	}

	a.mu.Lock()
	a.lastApplied = append([]byte(nil), raw...)
	status := a.status
	a.mu.Unlock()

	if status != nil {
		status.SetShortcutCount(report.Registered())
	}
	return report, nil
}

// ApplyKeybindsFile is the watcher callback. Content identical to the last
// applied payload is ignored, and a bad file leaves the current shortcuts
// in place.
func (a *App) ApplyKeybindsFile(content []byte) {
	a.mu.Lock()
	same := a.lastApplied != nil && bytes.Equal(a.lastApplied, content)
	a.mu.Unlock()
	if same {
		a.log.Debug().Msg("Keybinds file unchanged")
		return
	}

	report, err := a.UpdateShortcuts(content)
	if err != nil {
		a.log.Warn().Err(err).Msg("Ignoring invalid keybinds file")
		return
	}
	a.log.Info().Str("pass", report.Pass).Int("registered", report.Registered()).Msg("Keybinds file applied")
}

// ReloadKeybinds re-reads the keybinds file and applies it unconditionally.
func (a *App) ReloadKeybinds() (shortcuts.Report, error) {
	data, err := os.ReadFile(a.cfg.KeybindsFile)
	if err != nil {
		return shortcuts.Report{}, err
	}
	return a.UpdateShortcuts(data)
}

// ClearShortcuts releases every dynamic shortcut. The lock hotkey stays.
func (a *App) ClearShortcuts() int {
	n := a.syncer.Clear()

	a.mu.Lock()
	a.lastApplied = nil
	status := a.status
	a.mu.Unlock()

	if status != nil {
		status.SetShortcutCount(0)
	}
	return n
}

// ActiveShortcuts returns the live dynamic shortcut identifiers.
func (a *App) ActiveShortcuts() []string {
	return a.syncer.Active()
}

// ToggleLock publishes toggle-lock exactly as the lock hotkey does.
func (a *App) ToggleLock() {
	a.bus.Emit(events.ToggleLock, nil)
}

func (a *App) IsLocked() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locked
}

// ShortcutInfo is one live shortcut as reported to the UI.
type ShortcutInfo struct {
	Shortcut string `json:"shortcut"`
	Action   string `json:"action"`
	Slot     int    `json:"slot"`
}

// ShortcutList is the list_global_shortcuts result.
type ShortcutList struct {
	Locked     bool           `json:"locked"`
	LockHotkey string         `json:"lockHotkey"`
	Shortcuts  []ShortcutInfo `json:"shortcuts"`
}

func (a *App) listShortcuts() ShortcutList {
	bindings := a.syncer.Bindings()
	out := ShortcutList{
		Locked:     a.IsLocked(),
		LockHotkey: a.cfg.LockHotkey,
		Shortcuts:  make([]ShortcutInfo, 0, len(bindings)),
	}
	for _, b := range bindings {
		out.Shortcuts = append(out.Shortcuts, ShortcutInfo{Shortcut: b.ID, Action: b.Action, Slot: b.Slot})
	}
	return out
}

type updateArgs struct {
	KeybindsJSON *string        `json:"keybindsJson"`
	Keybinds     json.RawMessage `json:"keybinds"`
}

// keybindsPayload accepts either the serialized form the UI has always sent
// or the keybinds object inline.
func keybindsPayload(args json.RawMessage) ([]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s requires keybindsJson or keybinds", bridge.CmdUpdateShortcuts)
	}
	var u updateArgs
	if err := json.Unmarshal(args, &u); err != nil {
		return nil, fmt.Errorf("%s: invalid args: %w", bridge.CmdUpdateShortcuts, err)
	}
	switch {
	case u.KeybindsJSON != nil:
		return []byte(*u.KeybindsJSON), nil
	case len(u.Keybinds) > 0 && string(u.Keybinds) != "null":
		return u.Keybinds, nil
	default:
		return nil, fmt.Errorf("%s requires keybindsJson or keybinds", bridge.CmdUpdateShortcuts)
	}
}

// HandleCommand implements bridge.Handler.
func (a *App) HandleCommand(ctx context.Context, command string, args json.RawMessage) (any, error) {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}

	switch command {
	case bridge.CmdUpdateShortcuts:
		raw, err := keybindsPayload(args)
		if err != nil {
			return nil, err
		}
		report, err := a.UpdateShortcuts(raw)
		if err != nil {
			return nil, err
		}
		return report, nil
	case bridge.CmdListShortcuts:
		return a.listShortcuts(), nil
	case bridge.CmdClearShortcuts:
		return map[string]int{"unregistered": a.ClearShortcuts()}, nil
	case bridge.CmdCloseApp:
		a.log.Info().Msg("Close requested by UI")
		if a.quit != nil {
			// The reply is written after we return; quit asynchronously.
			go a.quit()
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

// Shutdown releases the dynamic shortcuts. The backend itself is closed by
// its owner.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.unsubscribe
	a.unsubscribe = nil
	a.started = false
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	n := a.syncer.Clear()
	a.log.Info().Int("unregistered", n).Msg("Shortcuts released")
	return nil
}
