package tray

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/chronoghost/internal/app"
	"github.com/petems/chronoghost/internal/config"
	"github.com/petems/chronoghost/internal/logging"
)

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	mu         sync.Mutex
	ready      bool
	locked     bool
	count      int
	lastAction string

	// Menu items
	mStatus     *systray.MenuItem
	mLastAction *systray.MenuItem
	mLock       *systray.MenuItem
}

// Status update methods for the app to call

func (u *UI) SetLocked(locked bool) {
	u.mu.Lock()
	u.locked = locked
	u.mu.Unlock()
	u.refresh()
}

func (u *UI) SetShortcutCount(n int) {
	u.mu.Lock()
	u.count = n
	u.mu.Unlock()
	u.refresh()
}

func (u *UI) SetLastAction(action string) {
	u.mu.Lock()
	u.lastAction = action
	u.mu.Unlock()
	u.refresh()
}

func New(application *app.App, cfg *config.Config, version, commit string) *UI {
	log := logging.New()
	return &UI{
		app:     application,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log,
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// SetLogger replaces the default logger with the configured one.
func (u *UI) SetLogger(log zerolog.Logger) {
	u.log = log
}

// Run blocks until Quit. It must be called from the main thread.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

// Quit stops the tray loop, which makes Run return.
func (u *UI) Quit() {
	systray.Quit()
}

func (u *UI) onReady() {
	systray.SetTooltip(fmt.Sprintf("Chronoghost %s - global timer shortcuts", u.version))

	u.mStatus = systray.AddMenuItem("", "Active global shortcuts")
	u.mStatus.Disable()
	u.mLastAction = systray.AddMenuItem("", "Last timer shortcut pressed")
	u.mLastAction.Disable()
	systray.AddSeparator()

	u.mLock = systray.AddMenuItemCheckbox("Lock Overlay", fmt.Sprintf("Same as %s", u.cfg.LockHotkey), false)
	mReload := systray.AddMenuItem("Reload Keybinds", u.cfg.KeybindsFile)
	mCopy := systray.AddMenuItem("Copy Active Shortcuts", "Copy the registered shortcuts to the clipboard")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	u.mu.Unlock()
	u.refresh()

	// Event loop
	go u.handleEvents(mReload, mCopy, mQuit)
}

func (u *UI) handleEvents(mReload, mCopy, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mLock.ClickedCh:
			u.app.ToggleLock()
		case <-mReload.ClickedCh:
			u.reloadKeybinds()
		case <-mCopy.ClickedCh:
			u.copyShortcuts()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) reloadKeybinds() {
	report, err := u.app.ReloadKeybinds()
	if err != nil {
		u.log.Error().Err(err).Str("path", u.cfg.KeybindsFile).Msg("Failed to reload keybinds")
		return
	}
	u.log.Info().Int("registered", report.Registered()).Int("failed", len(report.Failed())).Msg("Reloaded keybinds")
}

func (u *UI) copyShortcuts() {
	text := formatShortcuts(u.cfg.LockHotkey, u.app.ActiveShortcuts())
	if err := clipboard.WriteAll(text); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy shortcuts")
		return
	}
	u.log.Info().Msg("Copied active shortcuts to clipboard")
}

func (u *UI) onExit() {
	u.log.Debug().Msg("Tray exited")
}

// refresh redraws the title and status items. Updates that arrive before
// the tray is ready are kept and drawn in onReady.
func (u *UI) refresh() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.ready {
		return
	}

	systray.SetTitle(statusTitle(u.locked, u.count))
	u.mStatus.SetTitle(shortcutCountLabel(u.count))
	u.mLastAction.SetTitle(lastActionLabel(u.lastAction))
	if u.locked {
		u.mLock.Check()
	} else {
		u.mLock.Uncheck()
	}
}

// statusTitle sets the tray title with a timer emoji and lock indicator
func statusTitle(locked bool, count int) string {
	lock := "🔓"
	if locked {
		lock = "🔒"
	}
	if count == 0 {
		return fmt.Sprintf("⏱ %s", lock)
	}
	return fmt.Sprintf("⏱ %s %d", lock, count)
}

func shortcutCountLabel(n int) string {
	switch n {
	case 0:
		return "No global shortcuts"
	case 1:
		return "1 global shortcut"
	default:
		return fmt.Sprintf("%d global shortcuts", n)
	}
}

func lastActionLabel(action string) string {
	if action == "" {
		return "Last: none"
	}
	return "Last: " + action
}

// formatShortcuts renders one shortcut per line, lock hotkey first.
func formatShortcuts(lockHotkey string, active []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (lock)\n", lockHotkey)
	for _, s := range active {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}
