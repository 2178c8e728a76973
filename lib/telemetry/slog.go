package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog sets the process-wide default logger. debug enables
// LevelDebug, which also turns on raw request dumping in restyutil.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
