// Package metrics exposes Prometheus counters for capture, replay, and
// fork activity (an addition beyond the Python original, grounded on
// etalazz-vsa's package-level counter + promhttp exporter pattern).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesCaptured = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ghostline_frames_captured_total",
		Help: "Total frames appended by a Recorder across all runs.",
	})
	ReplayHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ghostline_replay_hits_total",
		Help: "Total Replayer lookups that matched a stored frame.",
	})
	ReplayMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ghostline_replay_misses_total",
		Help: "Total Replayer lookups with no matching stored frame.",
	})
	ForkOperations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ghostline_fork_operations_total",
		Help: "Total fork operations that produced a child run.",
	})
	ContainerBytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ghostline_container_bytes_written_total",
		Help: "Total compressed bytes written to .ghostline containers.",
	})
)

func init() {
	prometheus.MustRegister(
		FramesCaptured,
		ReplayHits,
		ReplayMisses,
		ForkOperations,
		ContainerBytesWritten,
	)
}

// ServeHTTP starts a standalone /metrics endpoint on addr in the
// background. Safe to call at most once per process; callers that
// already expose Prometheus elsewhere should register promhttp
// themselves instead of calling this.
func ServeHTTP(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
