// Package logger is the slog-based structured logger shared by the API,
// the scheduler and the seed command.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

// Request-scoped values picked up by WithContext.
const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
)

type Logger struct {
	*slog.Logger
}

// New logs to stdout: human-readable text at debug level in development,
// JSON at info level everywhere else.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

func NewWithWriter(env string, w io.Writer) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// Discard is used by tests and by constructors given a nil logger.
func Discard() *Logger {
	return NewWithWriter("production", io.Discard)
}

// WithContext tags the logger with the request and user ids stored on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var attrs []any
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id, ok := ctx.Value(UserIDKey).(string); ok && id != "" {
		attrs = append(attrs, slog.String("user_id", id))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{l.With(attrs...)}
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Any("error", err),
		slog.String("client_ip", clientIP),
	)
}

// AuthEvent records login, logout, registration and password reset
// outcomes. Failures are logged at warn with the reason.
func (l *Logger) AuthEvent(event, email string, success bool, reason string) {
	attrs := []any{
		slog.String("event", event),
		slog.String("email", email),
		slog.Bool("success", success),
	}
	if success {
		l.Info("auth_event", attrs...)
		return
	}
	l.Warn("auth_event", append(attrs, slog.String("reason", reason))...)
}

func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error", slog.String("operation", operation), slog.Any("error", err))
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded", slog.String("client_ip", clientIP), slog.String("path", path))
}

// DeliveryFailed logs a notification side channel (email, slack, hubspot,
// realtime) that could not deliver. These never fail the triggering request.
func (l *Logger) DeliveryFailed(channel, event string, err error) {
	l.Warn("delivery_failed",
		slog.String("channel", channel),
		slog.String("event", event),
		slog.Any("error", err),
	)
}
