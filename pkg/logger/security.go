package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// SecurityEvent is the log-side view of an audit record.
type SecurityEvent struct {
	Type        string
	Severity    string
	Description string
	SourceIP    string
	UserID      string
}

// SecurityLogger writes security events as structured log lines tagged with
// security=true so they can be routed separately from access logs.
type SecurityLogger struct {
	logger *slog.Logger
}

func NewSecurityLogger(logger *slog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger}
}

// Log emits one line at a level derived from the event severity.
func (sl *SecurityLogger) Log(ctx context.Context, event SecurityEvent) {
	attrs := []slog.Attr{
		slog.Bool("security", true),
		slog.String("event_type", event.Type),
		slog.String("severity", event.Severity),
	}
	if event.SourceIP != "" {
		attrs = append(attrs, slog.String("source_ip", event.SourceIP))
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}

	level := slog.LevelInfo
	switch event.Severity {
	case "medium":
		level = slog.LevelWarn
	case "high":
		level = slog.LevelError
	case "critical":
		level = slog.LevelError
		attrs = append(attrs, slog.Bool("critical", true))
	}

	sl.logger.LogAttrs(ctx, level, event.Description, attrs...)
}

// LogWriteFailure records that an event could not be persisted.
func (sl *SecurityLogger) LogWriteFailure(ctx context.Context, event SecurityEvent, err error) {
	sl.logger.LogAttrs(ctx, slog.LevelError, "audit write failed",
		slog.Bool("security", true),
		slog.String("event_type", event.Type),
		slog.Any("error", err),
	)
}

// New builds the JSON process logger at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

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
