// Package logging keeps registered secrets out of log output and exposes the
// process-wide switch for unsafe debug logging.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Redacted replaces every registered secret.
const Redacted = "[REDACTED]"

// UnsafeDebugEnv enables logging of query variables and filter values.
const UnsafeDebugEnv = "PURPLEMCP_DEBUG_UNSAFE_LOGGING"

// UnsafeDebugEnabled reports whether full request payloads may be logged.
// It is read on every call so the flag can be flipped without a restart.
func UnsafeDebugEnabled() bool {
	return os.Getenv(UnsafeDebugEnv) == "1"
}

// Secrets is a concurrency-safe registry of values that must never be logged.
type Secrets struct {
	mu     sync.RWMutex
	values map[string]struct{}
}

// NewSecrets returns an empty registry.
func NewSecrets() *Secrets {
	return &Secrets{values: make(map[string]struct{})}
}

// Register adds a secret. Empty strings are ignored.
func (s *Secrets) Register(secret string) {
	if secret == "" {
		return
	}
	s.mu.Lock()
	s.values[secret] = struct{}{}
	s.mu.Unlock()
}

// Redact replaces every registered secret in text.
func (s *Secrets) Redact(text string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for secret := range s.values {
		if strings.Contains(text, secret) {
			text = strings.ReplaceAll(text, secret, Redacted)
		}
	}
	return text
}

// Default is the registry installed by main.
var Default = NewSecrets()

// RegisterSecret adds a secret to the default registry.
func RegisterSecret(secret string) {
	Default.Register(secret)
}

// RedactingHandler is a slog.Handler that scrubs secrets from the message and
// from every string, error or stringer attribute before passing the record on.
type RedactingHandler struct {
	next    slog.Handler
	secrets *Secrets
}

// NewRedactingHandler wraps next. A nil registry means Default.
func NewRedactingHandler(next slog.Handler, secrets *Secrets) *RedactingHandler {
	if secrets == nil {
		secrets = Default
	}
	return &RedactingHandler{next: next, secrets: secrets}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.secrets.Redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(redacted), secrets: h.secrets}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name), secrets: h.secrets}
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.secrets.Redact(v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = h.redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return slog.String(a.Key, h.secrets.Redact(x.Error()))
		case fmt.Stringer:
			return slog.String(a.Key, h.secrets.Redact(x.String()))
		case []string:
			out := make([]string, len(x))
			for i, s := range x {
				out[i] = h.secrets.Redact(s)
			}
			return slog.Any(a.Key, out)
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// LogrusHook scrubs secrets from logrus entries.
type LogrusHook struct {
	secrets *Secrets
}

// NewLogrusHook returns a hook backed by secrets, or Default when nil.
func NewLogrusHook(secrets *Secrets) *LogrusHook {
	if secrets == nil {
		secrets = Default
	}
	return &LogrusHook{secrets: secrets}
}

func (h *LogrusHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *LogrusHook) Fire(entry *logrus.Entry) error {
	entry.Message = h.secrets.Redact(entry.Message)
	for k, v := range entry.Data {
		switch x := v.(type) {
		case string:
			entry.Data[k] = h.secrets.Redact(x)
		case error:
			entry.Data[k] = h.secrets.Redact(x.Error())
		}
	}
	return nil
}

// NewLogger builds the process slog logger: a text handler on stderr behind
// the redacting handler.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(NewRedactingHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}), nil))
}

// NewLogrusLogger builds a logrus logger with the same level and redaction,
// for components that log through logrus.
func NewLogrusLogger(level slog.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	switch {
	case level <= slog.LevelDebug:
		l.SetLevel(logrus.DebugLevel)
	case level <= slog.LevelInfo:
		l.SetLevel(logrus.InfoLevel)
	case level <= slog.LevelWarn:
		l.SetLevel(logrus.WarnLevel)
	default:
		l.SetLevel(logrus.ErrorLevel)
	}
	l.AddHook(NewLogrusHook(nil))
	return l
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
