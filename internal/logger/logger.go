// Package logger provides structured logging setup for agentd.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/openherd/agentd/internal/config"
)

// requestIDKey keys the HTTP request ID in a context. A struct type keeps
// it unexported and collision-free.
type requestIDKey struct{}

// WithRequestID stores a request ID in the context. Empty IDs are not
// stored so RequestID stays a reliable presence check.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID from the context, or "" if unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
// When cfg.Async is set, records are handled on a background worker; the
// returned Closer flushes and stops it.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	closer := Closer(nopCloser{})
	if cfg.Async {
		ah := newAsyncHandler(handler, cfg.AsyncBuffer)
		handler = ah
		closer = ah
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

// ForAgent returns a logger scoped to one agent instance. Agent bodies
// receive this at construction so every record carries the agent identity.
func ForAgent(log *slog.Logger, agentID, typeName string) *slog.Logger {
	return log.With("agent_id", agentID, "agent_type", typeName)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
