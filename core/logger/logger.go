// Package logger is the structured slog setup shared by the bot: one line
// per event, kv or JSON, with update metadata pulled from the context.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/reviewbot/core/buildinfo"
	coreconfig "github.com/m3rciful/reviewbot/core/config"
)

const defaultDebugSample = 50

var (
	initOnce sync.Once
	stopOnce sync.Once

	out     *asyncWriter
	files   []io.Closer
	level   slog.LevelVar
	debug   = newSampler(1, defaultDebugSample)
	tracing bool

	// L is the root logger; nil until InitLogger runs.
	L *slog.Logger
)

// settings is the part of the configuration the logger reads.
type settings struct {
	format  logFormat
	level   slog.Level
	order   []string
	sample  [2]int
	file    string
	profile string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{format: formatJSON, level: slog.LevelInfo, sample: [2]int{1, defaultDebugSample}, profile: "prod"}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}
	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				s.order = append(s.order, k)
			}
		}
	}
	if ratio := strings.TrimSpace(lc.DebugSample); ratio != "" {
		num, den := parseRatio(ratio)
		s.sample = [2]int{num, den}
	}
	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	return s
}

// InitLogger installs the global logger. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		if cfg != nil {
			RegisterSecret(cfg.Telegram.Token)
		}
		s := settingsFrom(cfg)
		level.Set(s.level)
		debug.Set(s.sample[0], s.sample[1])
		tracing = envTrue("TRACE") || envTrue("LOG_TRACE")

		sinks := []io.Writer{os.Stdout}
		if f := openLogFile(s.file); f != nil {
			sinks = append(sinks, f)
			files = append(files, f)
		}
		out = newAsyncWriter(sinks, 64*1024)

		L = slog.New(newLineHandler(out, s.format, &level, s.order))
		slog.SetDefault(L)

		mode := ""
		if cfg != nil {
			mode = cfg.Telegram.RunMode
		}
		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
			slog.String("mode", mode),
		)
	})
	return nil
}

// A log file that cannot be opened is reported on stderr and skipped.
func openLogFile(path string) *os.File {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("logger: create log dir: %v", err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open log file: %v", err)
		return nil
	}
	return f
}

// Shutdown flushes queued lines and closes log files. Safe to call twice.
func Shutdown() error {
	var errs []error
	stopOnce.Do(func() {
		if out != nil {
			errs = append(errs, out.Close())
		}
		for _, f := range files {
			errs = append(errs, f.Close())
		}
	})
	return errors.Join(errs...)
}

// Background is context.Background, kept for call sites outside a request.
func Background() context.Context { return context.Background() }

// Component returns L scoped to name, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes one event through logg, falling back to the context
// logger and then L. It is a no-op before InitLogger.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Event logs under component at lvl.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 disables sampling.
func ShouldSampleDebug() bool {
	return tracing || debug.Allow()
}

func envTrue(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
