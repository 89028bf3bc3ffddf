package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// NewLogger builds the application logger. Logs go to stderr; with debug
// enabled the level drops to Debug and output is mirrored to debug.log in
// the data directory.
func NewLogger(dataDir string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	var out io.Writer = os.Stderr

	if debug {
		level = slog.LevelDebug
		logPath := filepath.Join(dataDir, "debug.log")
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not open debug log at %s: %v\n", logPath, err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
