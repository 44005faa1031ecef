package logger

import (
	"log/slog"
	"os"
)

// Log is usable before Init so that packages and tests can log freely.
var Log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func Init(production bool) {
	level := slog.LevelDebug
	if production {
		level = slog.LevelInfo
	}
	// JSON handler for production-ready logging
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	Log = slog.New(handler)
	slog.SetDefault(Log)
}
