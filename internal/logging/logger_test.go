package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/joboya/ghostline/internal/config"
)

func TestNewRejectsBlankPath(t *testing.T) {
	if _, err := New(config.LoggingConfig{Path: "", Level: "info", MaxSizeMB: 1}); err == nil {
		t.Fatal("expected an error for a blank log path")
	}
}

func TestLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ghostline.log")
	logger, err := New(config.LoggingConfig{
		Level:     "info",
		Path:      path,
		MaxSizeMB: 10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("frame captured", Int("frame_index", 3), String("run_id", "abc123"))
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw[:len(raw)-1], &decoded); err != nil {
		t.Fatalf("decode log line %q: %v", raw, err)
	}
	if decoded["service"] != "ghostline" {
		t.Fatalf("expected service=ghostline, got %v", decoded["service"])
	}
	if decoded["message"] != "frame captured" {
		t.Fatalf("expected message field, got %v", decoded["message"])
	}
	if decoded["frame_index"] != float64(3) {
		t.Fatalf("expected frame_index=3, got %v", decoded["frame_index"])
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ghostline.log")
	logger, err := New(config.LoggingConfig{Level: "warn", Path: path, MaxSizeMB: 10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("should be dropped")
	logger.Info("should also be dropped")
	logger.Warn("should appear")
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := 0
	for _, b := range raw {
		if b == '\n' {
			lines++
		}
	}
	if lines != 1 {
		t.Fatalf("expected exactly one line past the warn threshold, got %d", lines)
	}
}

func TestWithAugmentsFieldsWithoutMutatingParent(t *testing.T) {
	base := NewTestLogger().With(String("component", "recorder"))
	derived := base.With(RunID([]byte{0xAB, 0xCD}), FrameIndex(7), RequestHash([]byte{0x01}))

	if derived == base {
		t.Fatal("expected With to return a distinct logger")
	}
	if _, ok := base.fields["run_id"]; ok {
		t.Fatal("expected parent fields to be unaffected by a derived logger")
	}
	if derived.fields["run_id"] != "abcd" {
		t.Fatalf("expected hex-encoded run id, got %v", derived.fields["run_id"])
	}
	if derived.fields["frame_index"] != 7 {
		t.Fatalf("expected frame_index=7, got %v", derived.fields["frame_index"])
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx, derived, traceID := WithTrace(context.Background(), NewTestLogger(), "")
	if traceID == "" {
		t.Fatal("expected a generated trace id")
	}
	got := LoggerFromContext(ctx)
	if got != derived {
		t.Fatal("expected the derived logger to round-trip through context")
	}
	if TraceIDFromContext(ctx) != traceID {
		t.Fatalf("expected trace id %q, got %q", traceID, TraceIDFromContext(ctx))
	}
}
