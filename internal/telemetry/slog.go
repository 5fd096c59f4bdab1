package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// logLevel backs every handler built by SetupLogger so the level can be
// changed at runtime without rebuilding the handler chain.
var logLevel = new(slog.LevelVar)

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" (any case)
// onto slog levels. Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// NewLogger builds a logger writing to w. format "json" selects the JSON
// handler, anything else the text handler.
func NewLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level.Level() == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// SetupLogger configures the global slog default logger from the logging
// section of the configuration and installs it with slog.SetDefault.
func SetupLogger(format, level string) {
	logLevel.Set(ParseLevel(level))
	slog.SetDefault(NewLogger(os.Stdout, format, logLevel))
	slog.Info("logger initialised", "format", format, "level", logLevel.Level().String())
}

// SetLogLevel changes the level of the logger installed by SetupLogger.
func SetLogLevel(level string) {
	next := ParseLevel(level)
	if next == logLevel.Level() {
		return
	}
	logLevel.Set(next)
	slog.Info("log level changed", "level", next.String())
}
