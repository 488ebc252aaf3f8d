package logging

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New creates a new zerolog logger with console and file output at info level.
func New() zerolog.Logger {
	return NewWithLevel("info")
}

// NewWithLevel creates the console+file logger filtered at level. Unknown
// levels fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := newLogger(console, openLogFile(LogPath()), lvl)
	if err != nil {
		logger.Warn().Str("level", level).Msg("Unknown log level, using info")
	}
	return logger
}

// ParseLevel maps a config level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
}

func newLogger(console io.Writer, file io.Writer, lvl zerolog.Level) zerolog.Logger {
	var out io.Writer = console
	if file != nil {
		// Multi-writer: console + file
		out = zerolog.MultiLevelWriter(console, file)
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger()
}

// openLogFile returns nil when the log file cannot be opened; console
// logging still works in that case.
func openLogFile(path string) io.Writer {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to create log directory")
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to open log file")
		return nil
	}
	return f
}

// LogPath returns the platform-specific log file path.
func LogPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Logs"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/state"
		}
	}

	return filepath.Join(base, "chronoghost", "chronoghost.log")
}
