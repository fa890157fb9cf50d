package intercept

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/joboya/ghostline/internal/ghostcontainer"
	"github.com/joboya/ghostline/internal/ghostframe"
	"github.com/joboya/ghostline/internal/recorder"
	"github.com/joboya/ghostline/internal/replayer"
)

func TestCallPassesThroughWithNoActiveSession(t *testing.T) {
	SetRecorder(nil)
	SetReplayer(nil)

	adapter := AdapterFunc(func(ctx context.Context, request any) ([]byte, error) {
		return []byte(`{"ok":true}`), nil
	})
	resp, err := Call(context.Background(), map[string]any{"model": "claude"}, adapter)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(resp) != `{"ok":true}` {
		t.Fatalf("unexpected response: %s", resp)
	}
}

func TestRecordCapturesThroughAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ghostline")
	calls := 0
	adapter := AdapterFunc(func(ctx context.Context, request any) ([]byte, error) {
		calls++
		return []byte(`{"text":"hi"}`), nil
	})

	err := Record(path, recorder.Options{Now: func() time.Time { return time.UnixMilli(1) }}, func(r *recorder.Recorder) error {
		_, err := Call(context.Background(), map[string]any{"prompt": "hello"}, adapter)
		return err
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected adapter to be called once, got %d", calls)
	}
	if currentRecorder() != nil {
		t.Fatal("expected the active recorder to be cleared after Record returns")
	}

	// The captured frame must be retrievable afterward.
	canonical, err := CanonicalJSON(map[string]any{"prompt": "hello"})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	r := replayer.New(path, replayer.Options{})
	if err := r.Start(); err != nil {
		t.Fatalf("start replayer: %v", err)
	}
	defer r.Stop()
	resp, ok, err := r.Lookup(canonical)
	if err != nil || !ok {
		t.Fatalf("expected the capture to be replayable, ok=%v err=%v", ok, err)
	}
	if string(resp) != `{"text":"hi"}` {
		t.Fatalf("unexpected captured response: %s", resp)
	}
}

func TestReplayServesCachedResponseAndMissesReportErrCacheMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ghostline")
	canonicalKnown, err := CanonicalJSON(map[string]any{"prompt": "known"})
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	w, err := ghostcontainer.NewWriter(path, ghostcontainer.Header{StartedAt: 1})
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	if err := w.Append(ghostframe.New(canonicalKnown, []byte(`{"text":"cached"}`), 1, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	adapterCalled := false
	adapter := AdapterFunc(func(ctx context.Context, request any) ([]byte, error) {
		adapterCalled = true
		return nil, nil
	})

	err = Replay(path, replayer.Options{}, func(r *replayer.Replayer) error {
		resp, err := Call(context.Background(), map[string]any{"prompt": "known"}, adapter)
		if err != nil {
			return err
		}
		if string(resp) != `{"text":"cached"}` {
			t.Fatalf("unexpected response: %s", resp)
		}

		_, missErr := Call(context.Background(), map[string]any{"prompt": "unknown"}, adapter)
		var cacheMiss *ErrCacheMiss
		if !errors.As(missErr, &cacheMiss) {
			t.Fatalf("expected ErrCacheMiss, got %v", missErr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if adapterCalled {
		t.Fatal("adapter must not be invoked while a replay session is active")
	}
	if currentReplayer() != nil {
		t.Fatal("expected the active replayer to be cleared after Replay returns")
	}
}
