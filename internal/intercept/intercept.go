// Package intercept provides the process-wide active-session registry
// and canonical request serialization that let adapter calls be
// transparently recorded or replayed (spec §4.H). Grounded on
// original_source/sdk/ghostline/wrapper.py's module-global
// _active_recorder/_active_replayer pair and context.py's
// context-manager start/defer-stop scoping.
package intercept

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/joboya/ghostline/internal/recorder"
	"github.com/joboya/ghostline/internal/replayer"
)

// Adapter invokes the real underlying call (an LLM API client, for
// example) and returns its response serialized to canonical bytes.
type Adapter interface {
	Invoke(ctx context.Context, request any) ([]byte, error)
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc func(ctx context.Context, request any) ([]byte, error)

// Invoke calls f.
func (f AdapterFunc) Invoke(ctx context.Context, request any) ([]byte, error) {
	return f(ctx, request)
}

var (
	mu              sync.Mutex
	activeRecorder  *recorder.Recorder
	activeReplayer  *replayer.Replayer
)

// SetRecorder installs the process-wide active recorder. Passing nil
// clears it. A single-writer slot with mutex discipline is sufficient
// here — Ghostline targets one in-process recording session at a time
// (spec §9's design note).
func SetRecorder(r *recorder.Recorder) {
	mu.Lock()
	defer mu.Unlock()
	activeRecorder = r
}

// SetReplayer installs the process-wide active replayer. Passing nil
// clears it.
func SetReplayer(r *replayer.Replayer) {
	mu.Lock()
	defer mu.Unlock()
	activeReplayer = r
}

func currentRecorder() *recorder.Recorder {
	mu.Lock()
	defer mu.Unlock()
	return activeRecorder
}

func currentReplayer() *replayer.Replayer {
	mu.Lock()
	defer mu.Unlock()
	return activeReplayer
}

// ErrCacheMiss is returned by Call when a replay session is active but
// has no cached response for the request (spec §4.H, mirroring the
// Python wrapper's LookupError on a replay miss).
type ErrCacheMiss struct {
	RequestHash [32]byte
}

func (e *ErrCacheMiss) Error() string {
	return fmt.Sprintf("intercept: no cached response for request hash %x", e.RequestHash[:8])
}

// Call routes one logical adapter call through whichever session is
// active: a replayer serves a cached response (or returns
// ErrCacheMiss), a recorder calls through and captures the
// request/response pair, and with neither active the adapter is
// invoked directly (spec §4.H).
func Call(ctx context.Context, request any, adapter Adapter) ([]byte, error) {
	canonical, err := CanonicalJSON(request)
	if err != nil {
		return nil, fmt.Errorf("intercept: serialize request: %w", err)
	}

	if r := currentReplayer(); r != nil {
		resp, ok, err := r.Lookup(canonical)
		if err != nil {
			return nil, fmt.Errorf("intercept: replay lookup: %w", err)
		}
		if !ok {
			return nil, &ErrCacheMiss{RequestHash: sha256.Sum256(canonical)}
		}
		return resp, nil
	}

	if r := currentRecorder(); r != nil {
		start := time.Now()
		resp, err := adapter.Invoke(ctx, request)
		if err != nil {
			return nil, err
		}
		latencyMs := uint64(time.Since(start).Milliseconds())
		if err := r.Capture(canonical, resp, latencyMs); err != nil {
			return nil, fmt.Errorf("intercept: capture: %w", err)
		}
		return resp, nil
	}

	return adapter.Invoke(ctx, request)
}

// Record opens a Recorder at path, installs it as the active session
// for the duration of fn, and always stops it and clears the registry
// afterward — even if fn panics or returns an error (spec §4.H /
// context.py's `record` context manager).
func Record(path string, opts recorder.Options, fn func(*recorder.Recorder) error) error {
	r, err := recorder.New(path, opts)
	if err != nil {
		return err
	}
	if err := r.Start(); err != nil {
		return err
	}
	SetRecorder(r)
	defer func() {
		SetRecorder(nil)
		_ = r.Stop()
	}()
	return fn(r)
}

// Replay opens a Replayer at path, installs it as the active session
// for the duration of fn, and always stops it and clears the registry
// afterward (spec §4.H / context.py's `replay` context manager).
func Replay(path string, opts replayer.Options, fn func(*replayer.Replayer) error) error {
	r := replayer.New(path, opts)
	if err := r.Start(); err != nil {
		return err
	}
	SetReplayer(r)
	defer func() {
		SetReplayer(nil)
		_ = r.Stop()
	}()
	return fn(r)
}
