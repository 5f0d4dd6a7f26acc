// Package logging builds the structured loggers used across videoseq.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	Level     string
	Writer    io.Writer
	Component string
	// Text selects the human readable handler instead of JSON.
	Text bool
}

func New(opts Options) *slog.Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var h slog.Handler
	if opts.Text {
		h = slog.NewTextHandler(writer, handlerOpts)
	} else {
		h = slog.NewJSONHandler(writer, handlerOpts)
	}
	lg := slog.New(h)
	if c := strings.TrimSpace(opts.Component); c != "" {
		lg = lg.With("component", c)
	}
	return lg
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
