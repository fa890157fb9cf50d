package ghostcontainer

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/natefinch/atomic"

	"github.com/joboya/ghostline/internal/ghostframe"
	"github.com/joboya/ghostline/internal/metrics"
)

// compressionLevel is fixed by spec §6: "Zstd compression level for
// writers: 3."
var compressionLevel = zstd.EncoderLevelFromZstd(3)

// indexEntry records a frame's request hash and its byte offset within
// the finished file, in append order (spec §4.B).
type indexEntry struct {
	hash   [ghostframe.HashSize]byte
	offset uint64
}

// Writer produces the header, appends compressed frames, and writes the
// tail index of a .ghostline file (spec §4.B). A Writer owns exclusive
// use of its destination from Open through Finish; the caller must
// serialize Append calls (spec §5).
type Writer struct {
	mu       sync.Mutex
	destPath string
	tmpFile  *os.File
	encoder  *zstd.Encoder
	offset   int64
	index    []indexEntry
	finished bool
}

// NewWriter begins a new container at destPath. The file is not visible
// at destPath until Finish succeeds — NewWriter writes to a temporary
// sibling file and Finish renames it into place atomically, so a crash
// between NewWriter and Finish never leaves a partial file at destPath
// (spec §5).
func NewWriter(destPath string, started Header) (*Writer, error) {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("ghostcontainer: create temp file: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(compressionLevel))
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("ghostcontainer: init zstd encoder: %w", err)
	}

	n, err := writeHeader(tmpFile, started)
	if err != nil {
		enc.Close()
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("ghostcontainer: write header: %w", err)
	}

	return &Writer{
		destPath: destPath,
		tmpFile:  tmpFile,
		encoder:  enc,
		offset:   n,
	}, nil
}

// Append writes one frame's compressed record body and records it in
// the in-memory index (spec §4.B "Body").
func (w *Writer) Append(f ghostframe.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finished {
		return fmt.Errorf("ghostcontainer: append after finish")
	}

	packed, err := f.Encode()
	if err != nil {
		return fmt.Errorf("ghostcontainer: encode frame: %w", err)
	}
	compressed := w.encoder.EncodeAll(packed, nil)

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(compressed)))

	entryOffset := w.offset
	if _, err := w.tmpFile.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("ghostcontainer: write frame length: %w", err)
	}
	if _, err := w.tmpFile.Write(compressed); err != nil {
		return fmt.Errorf("ghostcontainer: write frame body: %w", err)
	}
	w.offset += int64(4 + len(compressed))
	metrics.ContainerBytesWritten.Add(float64(len(compressed)))

	w.index = append(w.index, indexEntry{hash: f.RequestHash, offset: uint64(entryOffset)})
	return nil
}

// Finish writes the tail index and atomically publishes the file at
// destPath (spec §4.B "Tail"). Calling Finish a second time is
// undefined, per spec §4.B.
func (w *Writer) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.finished {
		return fmt.Errorf("ghostcontainer: finish called twice")
	}
	w.finished = true

	indexOffset := w.offset
	for _, entry := range w.index {
		if _, err := w.tmpFile.Write(entry.hash[:]); err != nil {
			return fmt.Errorf("ghostcontainer: write index hash: %w", err)
		}
		var offBuf [8]byte
		binary.LittleEndian.PutUint64(offBuf[:], entry.offset)
		if _, err := w.tmpFile.Write(offBuf[:]); err != nil {
			return fmt.Errorf("ghostcontainer: write index offset: %w", err)
		}
	}

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(w.index)))
	if _, err := w.tmpFile.Write(countBuf[:]); err != nil {
		return fmt.Errorf("ghostcontainer: write index count: %w", err)
	}

	var indexOffBuf [8]byte
	binary.LittleEndian.PutUint64(indexOffBuf[:], uint64(indexOffset))
	if _, err := w.tmpFile.Write(indexOffBuf[:]); err != nil {
		return fmt.Errorf("ghostcontainer: write index offset field: %w", err)
	}

	if err := w.tmpFile.Sync(); err != nil {
		return fmt.Errorf("ghostcontainer: sync temp file: %w", err)
	}
	tmpName := w.tmpFile.Name()
	if err := w.tmpFile.Close(); err != nil {
		return fmt.Errorf("ghostcontainer: close temp file: %w", err)
	}
	w.encoder.Close()

	if err := atomic.ReplaceFile(tmpName, w.destPath); err != nil {
		return fmt.Errorf("ghostcontainer: publish file: %w", err)
	}
	return nil
}

// Abort discards a Writer that will never be Finish-ed, removing its
// temporary file so no orphaned artefact is left behind.
func (w *Writer) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return nil
	}
	w.finished = true
	w.encoder.Close()
	name := w.tmpFile.Name()
	w.tmpFile.Close()
	return os.Remove(name)
}

// FrameCount returns the number of frames appended so far.
func (w *Writer) FrameCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.index)
}
