// Package fork derives a child .ghostline file from a parent run's
// frame prefix, recording lineage metadata in the child's header
// (spec §4.G). This module is additive relative to the Python
// original — spec.md's own open-question notes call out that no
// Python equivalent exists.
package fork

import (
	"errors"
	"fmt"
	"os"

	"github.com/joboya/ghostline/internal/ghostcontainer"
	"github.com/joboya/ghostline/internal/metrics"
)

// ErrStepOutOfRange is returned when fork_at_step is not in
// [0, parent.FrameCount()).
var ErrStepOutOfRange = errors.New("fork: fork_at_step out of range")

// Fork copies frames [0, atStep] inclusive from parentPath into a new
// container at childPath (atStep+1 frames total), stamping the child
// header with the parent's run identity and the fork point.
func Fork(parentPath, childPath string, atStep uint32) error {
	parentFile, err := os.Open(parentPath)
	if err != nil {
		return fmt.Errorf("fork: open parent %s: %w", parentPath, err)
	}
	defer parentFile.Close()

	parent, err := ghostcontainer.OpenReader(parentFile)
	if err != nil {
		return fmt.Errorf("fork: parse parent %s: %w", parentPath, err)
	}
	defer parent.Close()

	if int(atStep) >= parent.FrameCount() {
		return fmt.Errorf("%w: at_step %d, parent frame count %d", ErrStepOutOfRange, atStep, parent.FrameCount())
	}

	var parentFirstHash [32]byte
	if parent.FrameCount() > 0 {
		first, err := parent.GetFrame(0)
		if err != nil {
			return fmt.Errorf("fork: read parent's first frame: %w", err)
		}
		parentFirstHash = first.RequestHash
	}
	parentRunID := ghostcontainer.RunID(parent.Header().StartedAt, parentFirstHash)

	childHeader := ghostcontainer.Header{
		StartedAt:   parent.Header().StartedAt,
		GitSHA:      parent.Header().GitSHA,
		ParentRunID: &parentRunID,
		ForkAtStep:  atStep,
	}

	child, err := ghostcontainer.NewWriter(childPath, childHeader)
	if err != nil {
		return fmt.Errorf("fork: open child %s: %w", childPath, err)
	}

	it := parent.NewIterator()
	for i := uint32(0); i <= atStep; i++ {
		frame, ok, err := it.Next()
		if err != nil {
			child.Abort()
			return fmt.Errorf("fork: read parent frame %d: %w", i, err)
		}
		if !ok {
			break
		}
		if err := child.Append(frame); err != nil {
			child.Abort()
			return fmt.Errorf("fork: append frame %d: %w", i, err)
		}
	}

	if err := child.Finish(); err != nil {
		return fmt.Errorf("fork: finish child %s: %w", childPath, err)
	}
	metrics.ForkOperations.Inc()
	return nil
}
