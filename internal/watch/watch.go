// Package watch reloads the keybinds file when it changes on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reports the content of one file after each settled change.
// The parent directory is watched so editors that save by rename are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func([]byte)
	log      zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

type Config struct {
	Path     string
	Debounce time.Duration
	OnChange func(content []byte)
	Logger   zerolog.Logger
}

func New(cfg Config) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("watch: path is required")
	}
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("watch: OnChange is required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", cfg.Path, err)
	}
	return &Watcher{
		path:     abs,
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
		log:      cfg.Logger.With().Str("component", "watch").Str("path", abs).Logger(),
	}, nil
}

// Run watches until ctx is cancelled. A missing directory is an error; a
// missing file is not, it is picked up once created.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch: add %s: %w", filepath.Dir(w.path), err)
	}
	w.log.Info().Msg("Watching keybinds file")

	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) fire() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		// Renamed away mid-save; the following Create schedules another read.
		w.log.Debug().Err(err).Msg("Keybinds file not readable")
		return
	}
	w.onChange(data)
}
