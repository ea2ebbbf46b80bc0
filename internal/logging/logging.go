// Package logging builds the slog loggers shared by the linkcal binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelSilent is above every standard level
const LevelSilent = slog.Level(100)

// New creates a text logger writing to w at the given level
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewFile opens path in append mode and returns a logger writing to it.
// The caller closes the returned file.
func NewFile(path string, level slog.Level) (*slog.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return New(f, level), f, nil
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LevelFromString converts debug, info, warn or error (case-insensitive)
// to a slog.Level. Unknown strings map to info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "off":
		return LevelSilent
	default:
		return slog.LevelInfo
	}
}

// Notifier prints user-facing notices to w and records them in the log
type Notifier struct {
	w   io.Writer
	log *slog.Logger
}

// NewNotifier returns a Notifier writing to w. A nil logger discards.
func NewNotifier(w io.Writer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = Discard()
	}
	return &Notifier{w: w, log: logger}
}

// Notify implements ports.Notifier
func (n *Notifier) Notify(msg string) {
	n.log.Info("notice", "message", msg)
	if n.w != nil {
		fmt.Fprintln(n.w, msg)
	}
}
