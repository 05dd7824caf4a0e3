package cmd

import (
	"io"
	"log/slog"
)

// newLogger returns the text logger every subcommand writes diagnostics to.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
