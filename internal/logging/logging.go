// Package logging builds the slog loggers used across xwbridge.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	console "github.com/phsym/console-slog"
)

// ParseLevel parses debug, info, warn or error. An empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", s)
	}
}

// New returns a console logger writing to w. With addSource every record
// carries the file and line it was logged from.
func New(w io.Writer, level slog.Leveler, addSource bool) *slog.Logger {
	return slog.New(console.NewHandler(w, &console.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		NoColor:   !isTerminal(w),
	}))
}
