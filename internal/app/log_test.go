package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"vaultindex/internal/config"
)

func TestLineHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "vault reindexed",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tvault reindexed\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "event applied",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tevent applied\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelWarn,
			message: "skipping unreadable directory",
			attrs:   []slog.Attr{slog.String("path", "/docs/private"), slog.Int("entries", 42)},
			want:    "2024-06-15T14:30:45Z\tWARN\top-789\tskipping unreadable directory\tpath=/docs/private\tentries=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newLineHandler(&buf, tt.opID, nil)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestLineHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newLineHandler(&buf, "op-1", nil)

	h2 := h.WithAttrs([]slog.Attr{slog.String("vault", "docs")}).(*lineHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "watching", 0)
	r.AddAttrs(slog.String("root", "/vaults/docs"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "vault=docs") {
		t.Errorf("expected pre-set attr vault=docs, got: %q", got)
	}
	if !strings.Contains(got, "root=/vaults/docs") {
		t.Errorf("expected record attr root=/vaults/docs, got: %q", got)
	}
}

func TestLineHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	h := newLineHandler(&bytes.Buffer{}, "op-1", nil)
	h.attrs = []slog.Attr{slog.String("a", "1")}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*lineHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestLineHandler_Enabled(t *testing.T) {
	t.Run("nil level enables everything", func(t *testing.T) {
		h := &lineHandler{}
		for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
			if !h.Enabled(context.Background(), level) {
				t.Errorf("Enabled(%v) = false, want true", level)
			}
		}
	})

	t.Run("filters below configured level", func(t *testing.T) {
		h := newLineHandler(&bytes.Buffer{}, "op", slog.LevelWarn)
		if h.Enabled(context.Background(), slog.LevelInfo) {
			t.Error("Enabled(INFO) = true with WARN threshold")
		}
		if !h.Enabled(context.Background(), slog.LevelError) {
			t.Error("Enabled(ERROR) = false with WARN threshold")
		}
	})
}

func TestLineHandler_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLineHandler(&buf, "op", nil))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("event applied", "n", i)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		if strings.Count(line, "\t") != 4 {
			t.Errorf("malformed line %q", line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "WARN", wantErr: true},
		{in: "error", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, closer, err := newLogger(dir, config.LogConfig{Level: "info", MaxSizeMB: 1}, "test-op")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("written", "vault", "docs")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	got := string(data)
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line written at info level: %q", got)
	}
	if !strings.Contains(got, "\ttest-op\twritten\tvault=docs\n") {
		t.Errorf("log file = %q", got)
	}
}

func TestNewLogger_rejectsUnknownLevel(t *testing.T) {
	if _, _, err := newLogger(t.TempDir(), config.LogConfig{Level: "loud"}, "op"); err == nil {
		t.Fatal("newLogger() error = nil, want error")
	}
}
