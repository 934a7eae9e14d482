package logging

import (
	"log/slog"
	"os"
)

// Init installs the default logger. Warnings and errors only unless verbose,
// which drops the level to debug.
func Init(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
