// Package auditlog writes a best-effort, non-authoritative JSONL
// sidecar alongside a .ghostline container so operators can tail
// capture activity without parsing the binary format (a supplemented
// feature beyond spec.md's distillation — see original_source's
// audit-trail references in wrapper.py).
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang/snappy"
)

// Event is one audit-trail line. Payload is kept as a raw summary
// (never the full request/response bodies) so the sidecar stays small
// and never duplicates data a scrub pass already redacted.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	RunID       string    `json:"run_id"`
	FrameIndex  int       `json:"frame_index"`
	RequestHash string    `json:"request_hash"`
	LatencyMs   uint64    `json:"latency_ms"`
	Kind        string    `json:"kind"` // "capture", "replay_hit", "replay_miss", "fork"
}

// Log appends events to a snappy-compressed JSONL sidecar file. A Log
// with no backing file silently drops every Append call, so callers
// can construct one unconditionally and only wire a path when the
// operator opts in (spec: audit trail is additive, never required).
type Log struct {
	mu     sync.Mutex
	file   *os.File
	stream *snappy.Writer
}

// Open creates or truncates the sidecar file at path. An empty path
// returns a no-op Log.
func Open(path string) (*Log, error) {
	if path == "" {
		return &Log{}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("auditlog: create %s: %w", path, err)
	}
	return &Log{
		file:   file,
		stream: snappy.NewBufferedWriter(file),
	}, nil
}

// Append writes one event. Failures are returned but are expected to
// be logged and otherwise ignored by callers — the audit trail must
// never abort a capture or replay session.
func (l *Log) Append(ev Event) error {
	if l == nil || l.stream == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("auditlog: marshal event: %w", err)
	}
	if _, err := l.stream.Write(line); err != nil {
		return fmt.Errorf("auditlog: write event: %w", err)
	}
	if _, err := l.stream.Write([]byte("\n")); err != nil {
		return fmt.Errorf("auditlog: write newline: %w", err)
	}
	return l.stream.Flush()
}

// Close flushes and releases the sidecar file, if any.
func (l *Log) Close() error {
	if l == nil || l.stream == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	if err := l.stream.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := l.stream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := l.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
