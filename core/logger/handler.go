package logger

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat uint8

const (
	formatJSON logFormat = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// keyOrder puts correlation and outcome keys first; the rest follow sorted.
var keyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "handler",
	"phase", "establishment", "outcome", "duration_ms",
	"has_photo", "photo_policy", "photo_dropped",
	"backend", "sheet", "object_key", "object_url",
	"err", "err_code", "attempts",
}

// knownOutcomes lists the outcome values dashboards group by; others are dropped.
var knownOutcomes = map[string]bool{
	"ok": true, "fail": true, "cancelled": true, "rate_limited": true,
	"reprompt": true, "recorded": true,
}

// field is a flattened, already normalized attribute.
type field struct {
	key string
	val any
}

// lineHandler renders every record as one kv or JSON line.
type lineHandler struct {
	level  slog.Leveler
	out    *asyncWriter
	format logFormat
	order  []string

	prefix string
	preset []field
}

func newLineHandler(out *asyncWriter, format logFormat, level slog.Leveler, order []string) *lineHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	if len(order) == 0 {
		order = keyOrder
	}
	return &lineHandler{level: level, out: out, format: format, order: order}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = slices.Clip(h.preset)
	for _, a := range attrs {
		clone.preset = appendAttr(clone.preset, h.prefix, a)
	}
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.out == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	ts := r.Time.UTC()
	m := make(map[string]any, 16+len(h.preset))
	m["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	m["level"] = r.Level.String()
	if h.format == formatJSON {
		m["ts_unix_nano"] = ts.UnixNano()
	}
	for _, f := range h.preset {
		m[f.key] = f.val
	}
	var attrs []field
	r.Attrs(func(a slog.Attr) bool {
		attrs = appendAttr(attrs, h.prefix, a)
		return true
	})
	for _, f := range attrs {
		m[f.key] = f.val
	}
	mergeContext(ctx, m)
	h.settle(m, r.Message)

	var line []byte
	if h.format == formatJSON {
		var err error
		if line, err = encodeJSON(m, h.order); err != nil {
			return err
		}
	} else {
		line = encodeKV(m, h.order)
	}
	return h.out.Write(append(line, '\n'))
}

// settle fills defaults, compacts the rid and drops empty values.
func (h *lineHandler) settle(m map[string]any, msg string) {
	if s, _ := m["event"].(string); s == "" {
		m["event"] = cmp.Or(msg, "unknown")
	}
	if s, _ := m["component"].(string); s == "" {
		m["component"] = "app"
	}
	if rid, _ := m["rid"].(string); rid != "" {
		if c := CompactRID(rid); c != rid {
			if h.format == formatJSON {
				m["rid_full"] = rid
			}
			m["rid"] = c
		}
	}
	if s, ok := m["status"].(string); ok {
		m["status"] = strings.ToLower(s)
	}
	if o, ok := m["outcome"].(string); ok && !knownOutcomes[strings.ToLower(o)] {
		delete(m, "outcome")
	}
	for k, v := range m {
		if v == nil || v == "" {
			delete(m, k)
		}
	}
}

func mergeContext(ctx context.Context, m map[string]any) {
	md := metaFrom(ctx)
	setIfAbsent := func(k string, v any, zero bool) {
		if zero {
			return
		}
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	setIfAbsent("rid", md.rid, md.rid == "")
	setIfAbsent("update_id", int64(md.updateID), md.updateID == 0)
	setIfAbsent("user_id", md.userID, md.userID == 0)
	setIfAbsent("chat_id", md.chatID, md.chatID == 0)
	setIfAbsent("handler", md.handler, md.handler == "")
	setIfAbsent("establishment", md.establishment, md.establishment == "")
}

func appendAttr(dst []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			dst = appendAttr(dst, key, child)
		}
		return dst
	}
	if key == "" {
		return dst
	}
	if k, v, ok := plainValue(key, a.Value); ok {
		dst = append(dst, field{key: k, val: v})
	}
	return dst
}

// plainValue turns a slog value into something both encoders print
// directly. Strings are trimmed and redacted; durations become whole
// milliseconds under an _ms key.
func plainValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, RedactSecrets(strings.TrimSpace(v.String())), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, RedactSecrets(x.Error()), true
	case time.Duration:
		return msKey(key), RoundMS(x).Milliseconds(), true
	default:
		return key, RedactSecrets(fmt.Sprint(x)), true
	}
}

func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// orderedKeys lists keys from order that are present, then the rest sorted.
func orderedKeys(m map[string]any, order []string) []string {
	keys := make([]string, 0, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	head := len(keys)
	for k := range m {
		if !slices.Contains(keys[:head], k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[head:])
	return keys
}

func encodeJSON(m map[string]any, order []string) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range orderedKeys(m, order) {
		v, err := json.Marshal(m[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

func encodeKV(m map[string]any, order []string) []byte {
	var buf []byte
	for i, k := range orderedKeys(m, order) {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		s := fmt.Sprint(m[k])
		if strings.IndexFunc(s, needsQuote) >= 0 {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

// RoundMS rounds d to whole milliseconds; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values and reports whether any were cut.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	if limit <= 0 {
		return "", true
	}
	return strings.Join(values[:limit], ", "), true
}
