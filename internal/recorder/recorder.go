// Package recorder implements the Idle -> Open -> Idle capture
// session that wraps a ghostcontainer.Writer with scrubbing, audit
// logging, and metrics (spec §4.E).
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joboya/ghostline/internal/auditlog"
	"github.com/joboya/ghostline/internal/ghostcontainer"
	"github.com/joboya/ghostline/internal/ghostframe"
	"github.com/joboya/ghostline/internal/logging"
	"github.com/joboya/ghostline/internal/metrics"
	"github.com/joboya/ghostline/internal/scrub"
)

// ErrNotStarted is returned by Capture when called before Start.
var ErrNotStarted = errors.New("recorder: not started")

// state tracks Idle -> Open -> Idle; Start/Stop are idempotent no-ops
// when already in the target state, matching the Python original.
type state int

const (
	stateIdle state = iota
	stateOpen
)

// Options configures a Recorder.
type Options struct {
	// Scrub, when non-nil, redacts request/response bytes before the
	// hash is computed and the frame is written (spec §4.E: "the hash
	// is computed on scrubbed data").
	Scrub *scrub.Config
	// AuditLog receives a best-effort event per captured frame. A nil
	// value disables the sidecar.
	AuditLog *auditlog.Log
	// Logger receives structured diagnostics. A nil value falls back
	// to the package-level global logger.
	Logger *logging.Logger
	// Now overrides the capture clock; defaults to time.Now for
	// deterministic tests.
	Now func() time.Time
}

// Recorder records request/response pairs into a .ghostline container.
type Recorder struct {
	mu       sync.Mutex
	path     string
	now      func() time.Time
	scrub    *scrub.Compiled
	auditLog *auditlog.Log
	logger   *logging.Logger

	state       state
	writer      *ghostcontainer.Writer
	firstHash   *[ghostframe.HashSize]byte
	startedAt   uint64
	frameIndex  int
}

// New constructs a Recorder that will write to path on Start.
func New(path string, opts Options) (*Recorder, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}

	var compiled *scrub.Compiled
	if opts.Scrub != nil {
		c, err := scrub.Compile(*opts.Scrub)
		if err != nil {
			return nil, fmt.Errorf("recorder: compile scrub config: %w", err)
		}
		compiled = c
	}

	return &Recorder{
		path:     path,
		now:      now,
		scrub:    compiled,
		auditLog: opts.AuditLog,
		logger:   logger,
	}, nil
}

// Start opens the destination container. Calling Start on an
// already-open Recorder is a no-op (spec §4.E idempotent start).
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateOpen {
		return nil
	}

	startedAt := uint64(r.now().UTC().UnixMilli())
	writer, err := ghostcontainer.NewWriter(r.path, ghostcontainer.Header{StartedAt: startedAt})
	if err != nil {
		return fmt.Errorf("recorder: open container: %w", err)
	}

	r.writer = writer
	r.startedAt = startedAt
	r.firstHash = nil
	r.frameIndex = 0
	r.state = stateOpen
	r.logger.Info("recorder started", logging.String("path", r.path))
	return nil
}

// Stop finalizes the container and closes the session. Calling Stop
// on an already-idle Recorder is a no-op (spec §4.E idempotent stop).
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateIdle {
		return nil
	}

	err := r.writer.Finish()
	r.state = stateIdle
	r.writer = nil
	if err != nil {
		return fmt.Errorf("recorder: finish container: %w", err)
	}
	r.logger.Info("recorder stopped", logging.String("path", r.path))
	return nil
}

// Capture scrubs (if configured), hashes, and appends one frame. The
// timestamp and request hash are computed from the (possibly scrubbed)
// bytes passed to the underlying Frame, per spec §4.E.
func (r *Recorder) Capture(requestBytes, responseBytes []byte, latencyMs uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateOpen {
		return ErrNotStarted
	}

	if r.scrub != nil {
		requestBytes = r.scrub.Scrub(requestBytes)
		responseBytes = r.scrub.Scrub(responseBytes)
	}

	timestamp := uint64(r.now().UTC().UnixMilli())
	frame := ghostframe.New(requestBytes, responseBytes, latencyMs, timestamp)

	if r.firstHash == nil {
		hash := frame.RequestHash
		r.firstHash = &hash
	}

	if err := r.writer.Append(frame); err != nil {
		return fmt.Errorf("recorder: append frame: %w", err)
	}

	index := r.frameIndex
	r.frameIndex++
	metrics.FramesCaptured.Inc()

	if r.auditLog != nil {
		_ = r.auditLog.Append(auditlog.Event{
			Timestamp:   r.now().UTC(),
			RunID:       fmt.Sprintf("%x", r.RunIDLocked()),
			FrameIndex:  index,
			RequestHash: fmt.Sprintf("%x", frame.RequestHash),
			LatencyMs:   latencyMs,
			Kind:        "capture",
		})
	}
	return nil
}

// RunID returns the run identity derived from the first captured
// frame, or the zero value if no frame has been captured yet.
func (r *Recorder) RunID() [32]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.RunIDLocked()
}

// RunIDLocked is the lock-free variant for callers that already hold
// r.mu (e.g. Capture's audit-log branch).
func (r *Recorder) RunIDLocked() [32]byte {
	if r.firstHash == nil {
		return [32]byte{}
	}
	return ghostcontainer.RunID(r.startedAt, *r.firstHash)
}

// FrameCount returns the number of frames captured so far in the
// current session.
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameIndex
}
