package hotkey

import "errors"

var (
	// ErrAlreadyRegistered is returned when an accelerator is already held by this process.
	ErrAlreadyRegistered = errors.New("hotkey already registered")
	// ErrNotRegistered is returned when unregistering an accelerator this process does not hold.
	ErrNotRegistered = errors.New("hotkey not registered")
	// ErrUnknownKey is returned by backends that cannot map a key name.
	ErrUnknownKey = errors.New("unknown key")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("hotkey manager closed")
)

// Manager defines the interface for global hotkey management.
// Callbacks may run on a backend goroutine; pressed is false on key release.
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}
