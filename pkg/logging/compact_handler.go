package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

var levelTags = map[slog.Level]string{
	LevelTrace:      "[TRACE] ",
	slog.LevelDebug: "[DEBUG] ",
	slog.LevelInfo:  "[INFO]  ",
	slog.LevelWarn:  "[WARN]  ",
	slog.LevelError: "[ERROR] ",
}

// CompactHandler writes one console line per record:
//
//	[LEVEL] HH:MM:SS message | key=value key=value
//
// Component and request IDs are cut to their first eight characters, which
// is enough to tell UUIDs apart in a terminal.
type CompactHandler struct {
	level  slog.Leveler
	mu     *sync.Mutex
	out    io.Writer
	prefix string // dotted group path applied to new attrs
	attrs  []byte // preformatted attrs from WithAttrs
}

// NewCompactHandler returns a handler writing to w. A nil opts logs at info.
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	h := &CompactHandler{level: slog.LevelInfo, mu: &sync.Mutex{}, out: w}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	if tag, ok := levelTags[r.Level]; ok {
		buf = append(buf, tag...)
	} else {
		buf = fmt.Appendf(buf, "[%-5s] ", r.Level)
	}
	buf = r.Time.AppendFormat(buf, time.TimeOnly)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	attrs := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		attrs = h.appendAttr(attrs, h.prefix, a)
		return true
	})
	if len(attrs) > 0 {
		buf = append(buf, " |"...)
		buf = append(buf, attrs...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

// appendAttr writes " key=value", flattening groups into dotted keys
func (h *CompactHandler) appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = h.appendAttr(buf, prefix, ga)
		}
		return buf
	}

	key, v := a.Key, a.Value
	buf = append(buf, ' ')
	switch {
	case key == "requestID":
		buf = append(buf, prefix+"req="...)
		return append(buf, shortID(v.String())...)
	case key == "id" || strings.HasSuffix(key, "ID"):
		buf = append(buf, prefix+key+"="...)
		return append(buf, shortID(v.String())...)
	case key == "durationMs":
		buf = append(buf, prefix+"duration="...)
		return append(buf, v.String()+"ms"...)
	}

	buf = append(buf, prefix+key+"="...)
	switch v.Kind() {
	case slog.KindString:
		buf = appendString(buf, v.String())
	case slog.KindInt64:
		buf = strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		buf = strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		buf = strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		buf = strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		buf = append(buf, v.Duration().String()...)
	case slog.KindTime:
		buf = v.Time().AppendFormat(buf, time.RFC3339)
	default:
		switch x := v.Any().(type) {
		case error:
			buf = strconv.AppendQuote(buf, x.Error())
		case []string:
			buf = append(buf, '[')
			buf = append(buf, strings.Join(x, ",")...)
			buf = append(buf, ']')
		default:
			buf = appendString(buf, fmt.Sprint(x))
		}
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

// shortID keeps the first UUID group; other values pass through
func shortID(s string) string {
	if len(s) == 36 && s[8] == '-' {
		return s[:8]
	}
	return s
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		h2.attrs = h.appendAttr(h2.attrs, h.prefix, a)
	}
	return &h2
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}
