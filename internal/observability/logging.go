// Package observability is the ambient logging, metrics, and tracing stack
// shared by every other package: structured slog-based logging with
// secret redaction, Prometheus counters/histograms, and OpenTelemetry
// tracing spans.
package observability

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// ctxKey is the unexported type for context-carried correlation fields,
// matching the teacher's dedicated-type-per-context-key convention so a
// caller can't collide with another package's context keys.
type ctxKey string

const (
	ctxKeyTaskID  ctxKey = "task_id"
	ctxKeyActorID ctxKey = "actor_id"
	ctxKeyRunID   ctxKey = "run_id"
)

// LogConfig configures a Logger.
type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // json|text
}

// Logger wraps log/slog with redaction and context-correlated fields.
type Logger struct {
	base *slog.Logger
}

// DefaultRedactPatterns matches common secret shapes (API keys, bearer
// tokens, JWTs) so they never reach a log line even if a caller logs a raw
// error or payload that happens to contain one.
var DefaultRedactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+[a-z0-9._-]+`),
	regexp.MustCompile(`sk-ant-[a-z0-9-]+`),
	regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*\S+`),
}

// NewLogger builds a Logger per cfg, writing to os.Stderr.
func NewLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	return &Logger{base: slog.New(h)}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithContext returns a Logger that injects task/actor/run correlation
// fields found in ctx into every subsequent call.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := []any{}
	if v, ok := ctx.Value(ctxKeyTaskID).(string); ok && v != "" {
		attrs = append(attrs, "task_id", v)
	}
	if v, ok := ctx.Value(ctxKeyActorID).(string); ok && v != "" {
		attrs = append(attrs, "actor_id", v)
	}
	if v, ok := ctx.Value(ctxKeyRunID).(string); ok && v != "" {
		attrs = append(attrs, "run_id", v)
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{base: l.base.With(attrs...)}
}

// WithFields returns a Logger with kvs permanently attached.
func (l *Logger) WithFields(kvs ...any) *Logger {
	return &Logger{base: l.base.With(kvs...)}
}

func (l *Logger) Debug(msg string, kvs ...any) { l.log(slog.LevelDebug, msg, kvs...) }
func (l *Logger) Info(msg string, kvs ...any)  { l.log(slog.LevelInfo, msg, kvs...) }
func (l *Logger) Warn(msg string, kvs ...any)  { l.log(slog.LevelWarn, msg, kvs...) }
func (l *Logger) Error(msg string, kvs ...any) { l.log(slog.LevelError, msg, kvs...) }

func (l *Logger) log(level slog.Level, msg string, kvs ...any) {
	redacted := make([]any, len(kvs))
	for i, v := range kvs {
		if s, ok := v.(string); ok {
			redacted[i] = redactString(s)
		} else {
			redacted[i] = v
		}
	}
	l.base.Log(context.Background(), level, redactString(msg), redacted...)
}

func redactString(s string) string {
	for _, re := range DefaultRedactPatterns {
		s = re.ReplaceAllString(s, "[redacted]")
	}
	return s
}

// WithTaskID returns a context carrying taskID for correlated logging.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, ctxKeyTaskID, taskID)
}

// WithActorID returns a context carrying actorID for correlated logging.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ctxKeyActorID, actorID)
}

// WithRunID returns a context carrying runID for correlated logging.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, runID)
}
