// Package replayer implements the Idle -> Open -> Idle replay session
// that wraps a ghostcontainer.Reader, preloading a hash -> response
// cache and tracking hit/miss counters (spec §4.F).
package replayer

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/joboya/ghostline/internal/ghostcontainer"
	"github.com/joboya/ghostline/internal/logging"
	"github.com/joboya/ghostline/internal/metrics"
)

// ErrNotStarted is returned by Lookup when called before Start.
var ErrNotStarted = errors.New("replayer: not started")

type state int

const (
	stateIdle state = iota
	stateOpen
)

// Options configures a Replayer.
type Options struct {
	// Logger receives structured diagnostics. A nil value falls back
	// to the package-level global logger.
	Logger *logging.Logger
}

// Replayer serves cached responses keyed by request hash.
type Replayer struct {
	mu     sync.Mutex
	path   string
	logger *logging.Logger

	state  state
	file   *os.File
	reader *ghostcontainer.Reader
	cache  map[[ghostframe32]byte][]byte
	hits   uint64
	misses uint64
}

// ghostframe32 aliases the SHA-256 digest size so the cache map's key
// type doesn't need to import ghostframe just for a constant.
const ghostframe32 = 32

// New constructs a Replayer that will read from path on Start.
func New(path string, opts Options) *Replayer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	return &Replayer{path: path, logger: logger}
}

// Start opens the source container and preloads every frame's request
// hash -> response_bytes into an in-memory cache (spec §4.F). Calling
// Start on an already-open Replayer is a no-op.
func (r *Replayer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateOpen {
		return nil
	}

	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("replayer: open %s: %w", r.path, err)
	}
	reader, err := ghostcontainer.OpenReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("replayer: parse %s: %w", r.path, err)
	}

	cache := make(map[[ghostframe32]byte][]byte, reader.FrameCount())
	it := reader.NewIterator()
	for {
		frame, ok, err := it.Next()
		if err != nil {
			reader.Close()
			file.Close()
			return fmt.Errorf("replayer: preload frames: %w", err)
		}
		if !ok {
			break
		}
		// Last-writer-wins on duplicate hashes, matching the container
		// index's own tie-break rule.
		cache[frame.RequestHash] = frame.ResponseBytes
	}

	r.file = file
	r.reader = reader
	r.cache = cache
	r.hits = 0
	r.misses = 0
	r.state = stateOpen
	r.logger.Info("replayer started", logging.String("path", r.path), logging.Int("frames", len(cache)))
	return nil
}

// Stop releases the source container and clears the cache. Calling
// Stop on an already-idle Replayer is a no-op.
func (r *Replayer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateIdle {
		return nil
	}

	r.reader.Close()
	err := r.file.Close()
	r.reader = nil
	r.file = nil
	r.cache = nil
	r.state = stateIdle
	if err != nil {
		return fmt.Errorf("replayer: close %s: %w", r.path, err)
	}
	r.logger.Info("replayer stopped", logging.String("path", r.path))
	return nil
}

// Lookup returns the cached response for requestBytes's SHA-256 hash,
// or ok=false on a cache miss (spec §4.F).
func (r *Replayer) Lookup(requestBytes []byte) (response []byte, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateOpen {
		return nil, false, ErrNotStarted
	}

	hash := sha256.Sum256(requestBytes)
	response, ok = r.cache[hash]
	if ok {
		r.hits++
		metrics.ReplayHits.Inc()
	} else {
		r.misses++
		metrics.ReplayMisses.Inc()
	}
	return response, ok, nil
}

// Stats summarizes hit/miss counters for the current session.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Snapshot returns the current hit/miss counters.
func (r *Replayer) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Hits: r.hits, Misses: r.misses}
}
