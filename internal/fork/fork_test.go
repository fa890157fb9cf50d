package fork

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joboya/ghostline/internal/ghostcontainer"
	"github.com/joboya/ghostline/internal/ghostframe"
)

func writeParent(t *testing.T, frames []ghostframe.Frame) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parent.ghostline")
	w, err := ghostcontainer.NewWriter(path, ghostcontainer.Header{StartedAt: 1_700_000_000_000})
	if err != nil {
		t.Fatalf("open parent writer: %v", err)
	}
	for _, f := range frames {
		if err := w.Append(f); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	return path
}

func openChild(t *testing.T, path string) *ghostcontainer.Reader {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open child: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	r, err := ghostcontainer.OpenReader(f)
	if err != nil {
		t.Fatalf("parse child: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func TestForkCopiesInclusivePrefix(t *testing.T) {
	parentPath := writeParent(t, []ghostframe.Frame{
		ghostframe.New([]byte("a"), []byte("1"), 1, 1),
		ghostframe.New([]byte("b"), []byte("2"), 1, 2),
		ghostframe.New([]byte("c"), []byte("3"), 1, 3),
	})
	childPath := filepath.Join(t.TempDir(), "child.ghostline")

	// fork(src, at_step=2) on a 3-frame parent must yield all 3 frames
	// (indices 0, 1, 2 inclusive) — spec §8's worked example scenario 5.
	if err := Fork(parentPath, childPath, 2); err != nil {
		t.Fatalf("fork: %v", err)
	}

	child := openChild(t, childPath)
	if child.FrameCount() != 3 {
		t.Fatalf("child frame count = %d, want 3", child.FrameCount())
	}
	first, err := child.GetFrame(0)
	if err != nil {
		t.Fatalf("get frame 0: %v", err)
	}
	if !bytes.Equal(first.RequestBytes, []byte("a")) {
		t.Fatalf("frame 0 request_bytes = %q, want a", first.RequestBytes)
	}
	last, err := child.GetFrame(2)
	if err != nil {
		t.Fatalf("get frame 2: %v", err)
	}
	if !bytes.Equal(last.RequestBytes, []byte("c")) {
		t.Fatalf("frame 2 request_bytes = %q, want c", last.RequestBytes)
	}
}

func TestForkStampsParentLineage(t *testing.T) {
	parentPath := writeParent(t, []ghostframe.Frame{
		ghostframe.New([]byte("only"), []byte("resp"), 1, 1),
	})
	childPath := filepath.Join(t.TempDir(), "child.ghostline")

	// A 1-frame parent's only valid fork point is at_step=0 (0 <= at_step < frame_count).
	if err := Fork(parentPath, childPath, 0); err != nil {
		t.Fatalf("fork: %v", err)
	}

	child := openChild(t, childPath)
	header := child.Header()
	if !header.HasFork() {
		t.Fatal("expected child header to carry fork lineage")
	}
	if header.ForkAtStep != 0 {
		t.Fatalf("fork_at_step = %d, want 0", header.ForkAtStep)
	}

	want := ghostcontainer.RunID(1_700_000_000_000, sha256.Sum256([]byte("only")))
	if *header.ParentRunID != want {
		t.Fatalf("parent_run_id = %x, want %x", *header.ParentRunID, want)
	}
}

func TestForkRejectsStepBeyondParentLength(t *testing.T) {
	parentPath := writeParent(t, []ghostframe.Frame{
		ghostframe.New([]byte("a"), []byte("1"), 1, 1),
	})
	childPath := filepath.Join(t.TempDir(), "child.ghostline")

	if err := Fork(parentPath, childPath, 5); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("expected ErrStepOutOfRange when fork_at_step exceeds parent frame count, got %v", err)
	}
}

func TestForkRejectsStepEqualToParentLength(t *testing.T) {
	parentPath := writeParent(t, []ghostframe.Frame{
		ghostframe.New([]byte("a"), []byte("1"), 1, 1),
		ghostframe.New([]byte("b"), []byte("2"), 1, 2),
	})
	childPath := filepath.Join(t.TempDir(), "child.ghostline")

	// Valid range is 0 <= at_step < frame_count; at_step == frame_count
	// is out of range, not a "copy everything" alias.
	if err := Fork(parentPath, childPath, 2); !errors.Is(err, ErrStepOutOfRange) {
		t.Fatalf("expected ErrStepOutOfRange when fork_at_step equals parent frame count, got %v", err)
	}
}

func TestForkZeroStepProducesSingleFrameChild(t *testing.T) {
	parentPath := writeParent(t, []ghostframe.Frame{
		ghostframe.New([]byte("a"), []byte("1"), 1, 1),
		ghostframe.New([]byte("b"), []byte("2"), 1, 2),
	})
	childPath := filepath.Join(t.TempDir(), "child.ghostline")

	// at_step=0 includes frame index 0, per spec: child.frame_count == k+1.
	if err := Fork(parentPath, childPath, 0); err != nil {
		t.Fatalf("fork: %v", err)
	}
	child := openChild(t, childPath)
	if child.FrameCount() != 1 {
		t.Fatalf("expected a single-frame child, got %d frames", child.FrameCount())
	}
	only, err := child.GetFrame(0)
	if err != nil {
		t.Fatalf("get frame 0: %v", err)
	}
	if !bytes.Equal(only.RequestBytes, []byte("a")) {
		t.Fatalf("frame 0 request_bytes = %q, want a", only.RequestBytes)
	}
	if !child.Header().HasFork() {
		t.Fatal("expected lineage metadata even for a single-frame fork")
	}
}
