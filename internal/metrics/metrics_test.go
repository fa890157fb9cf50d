package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(FramesCaptured)
	FramesCaptured.Inc()
	after := testutil.ToFloat64(FramesCaptured)
	if after != before+1 {
		t.Fatalf("expected FramesCaptured to increment by 1, got %v -> %v", before, after)
	}
}

func TestReplayHitsAndMissesAreIndependent(t *testing.T) {
	beforeHits := testutil.ToFloat64(ReplayHits)
	beforeMisses := testutil.ToFloat64(ReplayMisses)

	ReplayHits.Inc()

	if got := testutil.ToFloat64(ReplayHits); got != beforeHits+1 {
		t.Fatalf("expected ReplayHits to increment, got %v", got)
	}
	if got := testutil.ToFloat64(ReplayMisses); got != beforeMisses {
		t.Fatalf("expected ReplayMisses to stay unchanged, got %v", got)
	}
}

func TestContainerBytesWrittenAccumulates(t *testing.T) {
	before := testutil.ToFloat64(ContainerBytesWritten)
	ContainerBytesWritten.Add(42)
	if got := testutil.ToFloat64(ContainerBytesWritten); got != before+42 {
		t.Fatalf("expected ContainerBytesWritten to accumulate by 42, got %v -> %v", before, got)
	}
}

func TestServeHTTPIgnoresBlankAddr(t *testing.T) {
	// Must not panic or attempt to bind a listener.
	ServeHTTP("")
}
