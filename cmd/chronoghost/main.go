package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/petems/chronoghost/internal/app"
	"github.com/petems/chronoghost/internal/bridge"
	"github.com/petems/chronoghost/internal/config"
	"github.com/petems/chronoghost/internal/events"
	"github.com/petems/chronoghost/internal/hotkey/system"
	"github.com/petems/chronoghost/internal/logging"
	"github.com/petems/chronoghost/internal/permissions"
	"github.com/petems/chronoghost/internal/shortcuts"
	"github.com/petems/chronoghost/internal/tray"
	"github.com/petems/chronoghost/internal/watch"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// The hotkey backend and the tray both need the main OS thread on macOS.
	system.RunOnMainThread(run)
}

func run() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	// macOS delivers global hotkeys only to apps with accessibility approval
	if err := permissions.EnsurePermissions(); err != nil {
		log.Fatal().Err(err).Msg("Required permissions not granted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize hotkey manager
	hkManager, err := system.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize hotkeys")
	}
	defer hkManager.Close()

	bus := events.NewBus()
	synchronizer := shortcuts.New(shortcuts.Config{
		Hotkeys: hkManager,
		Emitter: bus,
		Logger:  log.With().Str("component", "shortcuts").Logger(),
	})

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, cfg, Version, Commit) // App reference set below
	trayUI.SetLogger(log)

	application := app.New(app.Config{
		Shortcuts:     synchronizer,
		Bus:           bus,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: trayUI,
		Quit:          trayUI.Quit,
	})

	// Set app reference in tray
	trayUI.SetApp(application)

	hub := bridge.NewHub(bridge.HubOptions{
		Addr:           cfg.Bridge.Addr,
		Handler:        application,
		Logger:         log,
		AllowedOrigins: cfg.Bridge.AllowedOrigins,
	})
	unsubscribeHub := bus.Subscribe(hub.Publish)
	defer unsubscribeHub()

	// The lock hotkey goes in before the UI can reach the synchronizer.
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start")
	}

	if err := hub.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start bridge")
	}
	defer hub.Stop()

	if cfg.WatchKeybinds {
		watcher, err := watch.New(watch.Config{
			Path:     cfg.KeybindsFile,
			Debounce: cfg.WatchDebounce,
			OnChange: application.ApplyKeybindsFile,
			Logger:   log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create keybinds watcher")
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("Keybinds watcher stopped")
			}
		}()
	}

	log.Info().Str("version", Version).Str("bridge", hub.URL()).Msg("Chronoghost starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			log.Info().Msg("Shutting down...")
			trayUI.Quit()
		case <-ctx.Done():
		}
	}()

	// Start tray UI; returns on Quit, close_app or a signal
	if err := trayUI.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Tray error")
	}

	if err := application.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
