package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/rssimon/internal/infrastructure/config"
)

// Service names stamped on every entry.
const (
	ServiceServer   = "rssimon"
	ServiceReporter = "rssi-reporter"
)

// Logger wraps slog.Logger with rssimon defaults.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a Logger for the server process writing to the configured output.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewService(cfg, ServiceServer, version)
}

// NewService creates a Logger stamped with the given service name.
// The reporter CLI uses this so its entries are distinguishable from the server's.
func NewService(cfg config.LoggingConfig, service, version string) *Logger {
	return NewWithWriter(outputFor(cfg.Output), cfg, service, version)
}

// NewWithWriter creates a Logger writing to w, ignoring cfg.Output.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, service, version string) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

func outputFor(name string) io.Writer {
	switch strings.ToLower(name) {
	case "stderr":
		return os.Stderr
	case "discard", "none":
		return io.Discard
	default:
		return os.Stdout
	}
}

// parseLevel converts a string log level to slog.Level.
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
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

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	ingestLogger := logger.With("component", "ingest")
//	ingestLogger.Info("listening") // Includes component=ingest
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default creates a logger for use before configuration is loaded.
// It writes JSON at info level to stdout.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
