// Package observability provides logging and metrics for the client layer.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID keys the per-session correlation id in a context.
const CorrelationID LogContextKey = "correlation_id"

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id := ctx.Value(CorrelationID); id != nil {
		return id.(string)
	}
	return ""
}

// SyncLogger provides structured logging for synchronization activity on one
// conversation thread.
type SyncLogger struct {
	key    string
	logger *Logger
}

// NewSyncLogger creates a new SyncLogger bound to a conversation key.
func NewSyncLogger(key string) *SyncLogger {
	return &SyncLogger{
		key:    key,
		logger: GlobalLogger,
	}
}

// LogTick logs the outcome of one poll tick.
func (l *SyncLogger) LogTick(ctx context.Context, seq uint64, result string) {
	l.logger.InfoContext(ctx, "poll tick",
		slog.String("key", l.key),
		slog.Uint64("seq", seq),
		slog.String("result", result),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogError logs a failed fetch or send for the thread.
func (l *SyncLogger) LogError(ctx context.Context, operation string, err error) {
	l.logger.ErrorContext(ctx, "sync error",
		slog.String("key", l.key),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogRemoteCall logs a completed backend round trip. Debug level: the poll
// loop makes these too frequent for info.
func LogRemoteCall(ctx context.Context, op string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", op),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.DebugContext(ctx, "remote call", attrs...)
}

// LogRemoteCallError logs a backend round trip failure.
func LogRemoteCallError(ctx context.Context, op string, err error) {
	GlobalLogger.ErrorContext(ctx, "remote call failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}
