package logging

import (
	"context"
	"log/slog"
	"strings"
)

// componentLevelHandler applies the configured minimum level, swapping in a
// per-component override once a logger is tagged with a component attribute.
// The wrapped handler must be configured with the most verbose level in use.
type componentLevelHandler struct {
	next      slog.Handler
	base      slog.Level
	level     slog.Level
	overrides map[string]slog.Level
}

func newComponentLevelHandler(next slog.Handler, base slog.Level, overrides map[string]slog.Level) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &componentLevelHandler{next: next, base: base, level: base, overrides: overrides}
}

func (h *componentLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.level {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *componentLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *componentLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	level := h.level
	for _, attr := range attrs {
		if attr.Key != FieldComponent {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(attr.Value.String()))
		if override, ok := h.overrides[name]; ok {
			level = override
		} else {
			level = h.base
		}
	}
	return &componentLevelHandler{
		next:      h.next.WithAttrs(attrs),
		base:      h.base,
		level:     level,
		overrides: h.overrides,
	}
}

func (h *componentLevelHandler) WithGroup(name string) slog.Handler {
	return &componentLevelHandler{
		next:      h.next.WithGroup(name),
		base:      h.base,
		level:     h.level,
		overrides: h.overrides,
	}
}
