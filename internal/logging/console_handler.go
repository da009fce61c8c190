package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiGray   = "\x1b[90m"

	consoleTimeLayout = "2006-01-02 15:04:05"
)

// field is one flattened attribute. Group names are joined into the key with
// dots.
type field struct {
	key   string
	value slog.Value
}

// consoleHandler renders one line per record for operators watching a
// station terminal:
//
//	2026-03-02 12:09:14 WARN  [ack] UPS 12:10 – acknowledgment overwritten key=value
//
// The component, carrier and manifest time are lifted into the header so a
// line about a manifest reads the same way the board shows it.
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	source bool
	color  bool

	fields []field
	group  string
}

func newPrettyHandler(w io.Writer, lvl slog.Leveler, addSource, color bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: lvl, source: addSource, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	fields := append([]field(nil), h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.group, attr)
		return true
	})
	fields = lastWins(fields)

	var component, carrier, manifestTime string
	rest := fields[:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = f.value.String()
		case FieldCarrier:
			carrier = f.value.String()
		case FieldManifestTime:
			manifestTime = f.value.String()
		default:
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Local().Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(h.paint(levelColor(record.Level), levelLabel(record.Level)))
	if component != "" {
		b.WriteString(" [" + component + "]")
	}
	if subject := strings.TrimSpace(carrier + " " + manifestTime); subject != "" {
		b.WriteByte(' ')
		b.WriteString(h.paint(ansiCyan, subject))
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(" – " + msg)
	}
	if h.source && record.PC != 0 {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		b.WriteByte(' ')
		b.WriteString(h.paint(ansiGray, f.key+"="))
		b.WriteString(consoleValue(f.value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.fields = append([]field(nil), h.fields...)
	for _, attr := range attrs {
		group := h.group
		if attr.Key == FieldComponent {
			group = ""
		}
		clone.fields = appendField(clone.fields, group, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

func (h *consoleHandler) paint(color, s string) string {
	if !h.color || color == "" {
		return s
	}
	return color + s + ansiReset
}

func appendField(dst []field, group string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		prefix := group
		if attr.Key != "" {
			prefix = joinKey(group, attr.Key)
		}
		for _, member := range value.Group() {
			dst = appendField(dst, prefix, member)
		}
		return dst
	}
	if attr.Key == "" {
		return dst
	}
	return append(dst, field{key: joinKey(group, attr.Key), value: value})
}

// lastWins keeps the first position of each key with its latest value, so a
// logger.With override does not print the key twice.
func lastWins(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func consoleValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	default:
		return ""
	}
}
