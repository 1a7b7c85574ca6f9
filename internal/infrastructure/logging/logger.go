package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/solax-bridge/internal/infrastructure/config"
)

// ServiceName is attached to every log entry as the "service" attribute.
const ServiceName = "solax-bridge"

// MaxPayloadLen caps "payload" attributes. Inverter telemetry is a few
// hundred bytes; anything longer is cut and marked.
const MaxPayloadLen = 2048

// Attribute keys whose values are never written.
var redactedKeys = map[string]bool{
	"password": true,
	"secret":   true,
	"token":    true,
}

// Logger wraps slog.Logger with the bridge's default fields and attribute
// filtering.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to the configured output.
//
// Parameters:
//   - cfg: Logging configuration (level, json/text format, stdout/stderr)
//   - version: Application version, added to every entry
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}
	return NewWithWriter(output, cfg, version)
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler.WithAttrs([]slog.Attr{
			slog.String("service", ServiceName),
			slog.String("version", version),
		})),
	}
}

// replaceAttr redacts credentials and shortens oversized payloads.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch {
	case redactedKeys[strings.ToLower(a.Key)]:
		return slog.String(a.Key, "[redacted]")
	case a.Key == "payload" && a.Value.Kind() == slog.KindString:
		if s := a.Value.String(); len(s) > MaxPayloadLen {
			return slog.String(a.Key, fmt.Sprintf("%s...(%d bytes)", s[:MaxPayloadLen], len(s)))
		}
	}
	return a
}

// parseLevel converts a level name to slog.Level; unknown names mean info.
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
//	brokerLogger := logger.With("component", "broker")
//	brokerLogger.Info("listening") // Includes component=broker
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default is a JSON info-level logger for use before configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}

// Discard returns a logger that drops everything, for tests and tools.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
