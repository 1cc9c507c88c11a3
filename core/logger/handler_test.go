package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// emit writes a single event through a fresh handler and returns the line.
func emit(t *testing.T, format logFormat, ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newLineHandler(w, format, slog.LevelDebug, nil)).With("component", component)
	LogEvent(ctx, log, lvl, event, attrs...)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	return line
}

func TestKVLineOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := emit(t, formatKV, ctx, "app", slog.LevelInfo, "test.event",
		slog.String("status", "OK"),
		slog.String("cause", "unit"),
	)
	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(want) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
	if tokens[len(tokens)-1] != "cause=unit" {
		t.Fatalf("unordered keys must trail: %s", line)
	}
}

func TestJSONLineOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	line := emit(t, formatJSON, ctx, "service.feedback", slog.LevelError, "record.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.feedback"`, `"event":"record.failed"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, p := range prefixes {
		idx := strings.Index(line, p)
		if idx == -1 || idx < pos {
			t.Fatalf("%s not found in order within %s", p, line)
		}
		pos = idx
	}
}

func TestCompactRID(t *testing.T) {
	raw := BuildRID(123, 456, 789)
	line := emit(t, formatKV, WithRID(context.Background(), raw), "app", slog.LevelInfo, "rid.test")
	if !strings.Contains(line, "rid=3f.co.lx") {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full must be omitted from kv output, got %s", line)
	}

	line = emit(t, formatJSON, WithRID(context.Background(), raw), "app", slog.LevelInfo, "rid.test")
	if !strings.Contains(line, `"rid_full":"123:456:789"`) || !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("json output missing rid_full or ts_unix_nano: %s", line)
	}
	if CompactRID("not-a-rid") != "not-a-rid" {
		t.Fatal("foreign rid must pass through")
	}
}

func TestEstablishmentAndDuration(t *testing.T) {
	ctx := WithEstablishment(context.Background(), "Good Company")
	line := emit(t, formatJSON, ctx, "store.sheets", slog.LevelInfo, "row.appended",
		slog.Duration("duration", 1500*time.Microsecond),
	)
	if !strings.Contains(line, `"establishment":"Good Company"`) {
		t.Fatalf("expected establishment from context, got %s", line)
	}
	if !strings.Contains(line, `"duration_ms":2`) {
		t.Fatalf("expected rounded duration_ms, got %s", line)
	}
}

func TestContextMetaIsCopied(t *testing.T) {
	parent := WithHandler(context.Background(), "start")
	child := WithEstablishment(parent, "Blue Door")
	if EstablishmentFrom(parent) != "" {
		t.Fatal("child edit leaked into parent")
	}
	if HandlerFrom(child) != "start" || EstablishmentFrom(child) != "Blue Door" {
		t.Fatalf("child meta = %q/%q", HandlerFrom(child), EstablishmentFrom(child))
	}
}

func TestUnknownOutcomeDropped(t *testing.T) {
	line := emit(t, formatKV, context.Background(), "tg", slog.LevelInfo, "x",
		slog.String("outcome", "weird"),
		slog.String("empty", ""),
	)
	if strings.Contains(line, "outcome=") || strings.Contains(line, "empty=") {
		t.Fatalf("unexpected keys: %s", line)
	}
}

func TestGroupsFlatten(t *testing.T) {
	buf := &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{buf}, 0)
	log := slog.New(newLineHandler(w, formatKV, slog.LevelDebug, nil))
	log.WithGroup("s3").Info("upload", slog.String("bucket", "photos"), slog.Group("obj", slog.Int("size", 3)))
	_ = w.Close()
	line := buf.String()
	if !strings.Contains(line, "s3.bucket=photos") || !strings.Contains(line, "s3.obj.size=3") {
		t.Fatalf("groups not flattened: %s", line)
	}
}

func TestLineRedactsTokens(t *testing.T) {
	line := emit(t, formatKV, context.Background(), "tg", slog.LevelWarn, "photo.fetch_failed",
		slog.String("err", "Get https://api.telegram.org/file/bot42:SECRET_token/photos/a.jpg: EOF"),
	)
	if strings.Contains(line, "SECRET_token") {
		t.Fatalf("token leaked into log line: %s", line)
	}
}

func TestMsKey(t *testing.T) {
	cases := map[string]string{
		"duration":         "duration_ms",
		"startup_duration": "startup_duration_ms",
		"backoff_ms":       "backoff_ms",
		"elapsed":          "elapsed_ms",
	}
	for in, want := range cases {
		if got := msKey(in); got != want {
			t.Fatalf("msKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\td", 4); got != "abc\t" {
		t.Fatalf("got %q", got)
	}
}

func TestWriterAfterCloseFails(t *testing.T) {
	w := newAsyncWriter([]io.Writer{io.Discard}, 0)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Write([]byte("late\n")); err == nil {
		t.Fatal("expected error after close")
	}
}
