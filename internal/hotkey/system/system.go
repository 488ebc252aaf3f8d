// Package system implements hotkey.Manager on top of golang.design/x/hotkey.
package system

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	xhotkey "golang.design/x/hotkey"
	"golang.design/x/hotkey/mainthread"

	"github.com/petems/chronoghost/internal/hotkey"
)

type registration struct {
	hk     *xhotkey.Hotkey
	stopCh chan struct{}
}

type systemManager struct {
	mu     sync.Mutex
	regs   map[string]*registration
	closed bool
}

// New creates a hotkey manager backed by the OS hotkey APIs.
func New() (hotkey.Manager, error) {
	return &systemManager{regs: make(map[string]*registration)}, nil
}

// RunOnMainThread runs fn while keeping the main OS thread available to the
// hotkey backend (required on macOS).
func RunOnMainThread(fn func()) {
	mainthread.Init(fn)
}

func (m *systemManager) Register(accel string, callback func(pressed bool)) error {
	if callback == nil {
		return fmt.Errorf("register %q: callback is required", accel)
	}
	acc, err := hotkey.ParseAccelerator(accel)
	if err != nil {
		return err
	}
	mods, key, err := resolve(acc)
	if err != nil {
		return fmt.Errorf("register %q: %w", accel, err)
	}

	id := comboKey(acc)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return hotkey.ErrClosed
	}
	if _, ok := m.regs[id]; ok {
		return fmt.Errorf("register %q: %w", accel, hotkey.ErrAlreadyRegistered)
	}

	hk := xhotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register %q: %w", accel, err)
	}

	reg := &registration{
		hk:     hk,
		stopCh: make(chan struct{}),
	}
	m.regs[id] = reg
	go listen(reg, callback)
	return nil
}

func (m *systemManager) Unregister(accel string) error {
	acc, err := hotkey.ParseAccelerator(accel)
	if err != nil {
		return fmt.Errorf("unregister %q: %w", accel, err)
	}
	id := comboKey(acc)

	m.mu.Lock()
	reg, ok := m.regs[id]
	if ok {
		delete(m.regs, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("unregister %q: %w", accel, hotkey.ErrNotRegistered)
	}
	return stop(reg)
}

func (m *systemManager) Close() error {
	m.mu.Lock()
	regs := m.regs
	m.regs = make(map[string]*registration)
	m.closed = true
	m.mu.Unlock()

	var firstErr error
	for accel, reg := range regs {
		if err := stop(reg); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unregister %q: %w", accel, err)
		}
	}
	return firstErr
}

// comboKey identifies the physical key combination behind acc, so that
// spellings like "CommandOrControl+Shift+L", "shift+ctrl+l" and "Ctrl+Shift+L"
// share one registration slot.
func comboKey(acc hotkey.Accelerator) string {
	mods := slices.Clone(acc.Modifiers)
	slices.Sort(mods)
	return hotkey.Accelerator{Modifiers: mods, Key: strings.ToUpper(acc.Key)}.String()
}

// stop does not wait for the listener: a callback may itself be the caller.
func stop(reg *registration) error {
	close(reg.stopCh)
	return reg.hk.Unregister()
}

func listen(reg *registration, callback func(pressed bool)) {
	keydown := reg.hk.Keydown()
	keyup := reg.hk.Keyup()
	for {
		select {
		case <-reg.stopCh:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			callback(true)
		case _, ok := <-keyup:
			if !ok {
				return
			}
			callback(false)
		}
	}
}

func resolve(acc hotkey.Accelerator) ([]xhotkey.Modifier, xhotkey.Key, error) {
	mods := make([]xhotkey.Modifier, 0, len(acc.Modifiers))
	for _, m := range acc.Modifiers {
		mod, ok := modifierMap[m]
		if !ok {
			return nil, 0, fmt.Errorf("modifier %s not supported on this platform", m)
		}
		mods = append(mods, mod)
	}
	key, ok := keyMap[strings.ToUpper(acc.Key)]
	if !ok {
		return nil, 0, fmt.Errorf("%w %q", hotkey.ErrUnknownKey, acc.Key)
	}
	return mods, key, nil
}

// keyMap maps upper-cased key names to backend key codes.
var keyMap = map[string]xhotkey.Key{
	"SPACE":  xhotkey.KeySpace,
	"ENTER":  xhotkey.KeyReturn,
	"RETURN": xhotkey.KeyReturn,
	"TAB":    xhotkey.KeyTab,
	"ESC":    xhotkey.KeyEscape,
	"ESCAPE": xhotkey.KeyEscape,
	"DELETE": xhotkey.KeyDelete,
	"LEFT":   xhotkey.KeyLeft,
	"RIGHT":  xhotkey.KeyRight,
	"UP":     xhotkey.KeyUp,
	"DOWN":   xhotkey.KeyDown,
	"0":      xhotkey.Key0,
	"1":      xhotkey.Key1,
	"2":      xhotkey.Key2,
	"3":      xhotkey.Key3,
	"4":      xhotkey.Key4,
	"5":      xhotkey.Key5,
	"6":      xhotkey.Key6,
	"7":      xhotkey.Key7,
	"8":      xhotkey.Key8,
	"9":      xhotkey.Key9,
	"A":      xhotkey.KeyA,
	"B":      xhotkey.KeyB,
	"C":      xhotkey.KeyC,
	"D":      xhotkey.KeyD,
	"E":      xhotkey.KeyE,
	"F":      xhotkey.KeyF,
	"G":      xhotkey.KeyG,
	"H":      xhotkey.KeyH,
	"I":      xhotkey.KeyI,
	"J":      xhotkey.KeyJ,
	"K":      xhotkey.KeyK,
	"L":      xhotkey.KeyL,
	"M":      xhotkey.KeyM,
	"N":      xhotkey.KeyN,
	"O":      xhotkey.KeyO,
	"P":      xhotkey.KeyP,
	"Q":      xhotkey.KeyQ,
	"R":      xhotkey.KeyR,
	"S":      xhotkey.KeyS,
	"T":      xhotkey.KeyT,
	"U":      xhotkey.KeyU,
	"V":      xhotkey.KeyV,
	"W":      xhotkey.KeyW,
	"X":      xhotkey.KeyX,
	"Y":      xhotkey.KeyY,
	"Z":      xhotkey.KeyZ,
	"F1":     xhotkey.KeyF1,
	"F2":     xhotkey.KeyF2,
	"F3":     xhotkey.KeyF3,
	"F4":     xhotkey.KeyF4,
	"F5":     xhotkey.KeyF5,
	"F6":     xhotkey.KeyF6,
	"F7":     xhotkey.KeyF7,
	"F8":     xhotkey.KeyF8,
	"F9":     xhotkey.KeyF9,
	"F10":    xhotkey.KeyF10,
	"F11":    xhotkey.KeyF11,
	"F12":    xhotkey.KeyF12,
}
