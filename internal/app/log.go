package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"vaultindex/internal/config"
)

// LogFileName is the log file written under the configured log_dir.
const LogFileName = "vaultindex.log"

// lineHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Each record is written with a single Write so lines from concurrent
// watchers never interleave.
type lineHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	opID  string
	level slog.Leveler
	attrs []slog.Attr
}

func newLineHandler(w io.Writer, opID string, level slog.Leveler) *lineHandler {
	return &lineHandler{mu: &sync.Mutex{}, w: w, opID: opID, level: level}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.level == nil {
		return true
	}
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s", ts, r.Level.String(), h.opID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lineHandler{
		mu:    h.mu,
		w:     h.w,
		opID:  h.opID,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *lineHandler) WithGroup(string) slog.Handler { return h }

// parseLevel maps the config log level to a slog level. Empty means info.
func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// newLogger creates a structured logger that writes to both logDir/vaultindex.log
// (rotated by size) and stderr. The returned closer releases the log file.
func newLogger(logDir string, lc config.LogConfig, opID string) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(lc.Level)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, LogFileName),
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
	}

	w := io.MultiWriter(file, os.Stderr)
	return slog.New(newLineHandler(w, opID, level)), file, nil
}

// slogAdapter wraps *slog.Logger to satisfy the index.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
