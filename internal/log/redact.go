// Package log builds the process logger: log/slog with attribute redaction
// and optional size-based file rotation.
package log

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

const redacted = "[REDACTED]"

// credentialKeys are masked whether or not a schema declares them. A key
// also matches when it ends in "_" plus one of these, as in "api_token".
var credentialKeys = []string{
	types.FieldPassword,
	types.FieldSalt,
	"secret",
	"token",
	"dsn",
}

// SensitiveKeys returns the lower-cased attribute keys the handler masks:
// the credential keys plus the logical name and storage column of every
// sensitive field in schemas.
func SensitiveKeys(schemas ...types.Schema) map[string]struct{} {
	keys := make(map[string]struct{}, len(credentialKeys))
	for _, k := range credentialKeys {
		keys[k] = struct{}{}
	}
	for _, s := range schemas {
		for _, f := range s.Fields {
			if f.IsSensitive() {
				keys[strings.ToLower(f.Name)] = struct{}{}
				keys[strings.ToLower(f.Column)] = struct{}{}
			}
		}
	}
	return keys
}

// RedactingHandler masks sensitive attributes before passing records to the
// wrapped handler. Row and map values are masked column by column.
type RedactingHandler struct {
	inner slog.Handler
	keys  map[string]struct{}
}

// NewRedactingHandler wraps inner, masking the keys SensitiveKeys derives
// from schemas.
func NewRedactingHandler(inner slog.Handler, schemas ...types.Schema) *RedactingHandler {
	return &RedactingHandler{inner: inner, keys: SensitiveKeys(schemas...)}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fallback := slog.NewRecord(record.Time, slog.LevelError, "log handler panic recovered", record.PC)
			fallback.AddAttrs(slog.String("message", record.Message))
			err = h.inner.Handle(ctx, fallback)
		}
	}()

	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(h.redact(attr))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		masked = append(masked, h.redact(attr))
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(masked), keys: h.keys}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), keys: h.keys}
}

func (h *RedactingHandler) sensitive(key string) bool {
	k := strings.ToLower(key)
	if _, ok := h.keys[k]; ok {
		return true
	}
	for _, c := range credentialKeys {
		if strings.HasSuffix(k, "_"+c) {
			return true
		}
	}
	return false
}

func (h *RedactingHandler) redact(attr slog.Attr) slog.Attr {
	if h.sensitive(attr.Key) {
		return slog.String(attr.Key, redacted)
	}
	switch attr.Value.Kind() {
	case slog.KindGroup:
		group := attr.Value.Group()
		masked := make([]slog.Attr, 0, len(group))
		for _, nested := range group {
			masked = append(masked, h.redact(nested))
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(masked...)}
	case slog.KindAny:
		switch v := attr.Value.Any().(type) {
		case types.Row:
			return slog.Any(attr.Key, types.Row(h.redactMap(v)))
		case types.Predicate:
			return slog.Any(attr.Key, types.Predicate(h.redactMap(v)))
		case map[string]any:
			return slog.Any(attr.Key, h.redactMap(v))
		}
	}
	return attr
}

func (h *RedactingHandler) redactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if h.sensitive(k) {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}
