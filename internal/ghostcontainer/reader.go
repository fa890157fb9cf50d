package ghostcontainer

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/joboya/ghostline/internal/ghostframe"
)

// tailFixedSize is the combined size of the two trailing fields read
// from the end of the file: count (u32) + index_offset (u64).
const tailFixedSize = 4 + 8

// Reader parses the header, loads the tail index, and supports random
// access and hash lookup over a .ghostline file (spec §4.C).
type Reader struct {
	source  io.ReadSeeker
	header  Header
	entries []indexEntry    // append order, as stored in the tail index
	byHash  map[[ghostframe.HashSize]byte]int // last-writer-wins (spec open question)
	decoder *zstd.Decoder
}

// OpenReader parses source as a complete .ghostline container.
func OpenReader(source io.ReadSeeker) (*Reader, error) {
	if _, err := source.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ghostcontainer: seek start: %w", err)
	}
	header, err := readHeader(source)
	if err != nil {
		return nil, err
	}

	end, err := source.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("ghostcontainer: seek end: %w", err)
	}
	if end < tailFixedSize {
		return nil, fmt.Errorf("%w: file shorter than tail fields", ErrTruncated)
	}

	if _, err := source.Seek(end-8, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ghostcontainer: seek index offset field: %w", err)
	}
	var buf8 [8]byte
	if _, err := io.ReadFull(source, buf8[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	indexOffset := binary.LittleEndian.Uint64(buf8[:])

	if _, err := source.Seek(end-12, io.SeekStart); err != nil {
		return nil, fmt.Errorf("ghostcontainer: seek count field: %w", err)
	}
	var buf4 [4]byte
	if _, err := io.ReadFull(source, buf4[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	count := binary.LittleEndian.Uint32(buf4[:])

	if _, err := source.Seek(int64(indexOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("ghostcontainer: seek index: %w", err)
	}

	entries := make([]indexEntry, 0, count)
	byHash := make(map[[ghostframe.HashSize]byte]int, count)
	for i := uint32(0); i < count; i++ {
		var hash [ghostframe.HashSize]byte
		if _, err := io.ReadFull(source, hash[:]); err != nil {
			return nil, fmt.Errorf("%w: index entry %d hash: %v", ErrTruncated, i, err)
		}
		if _, err := io.ReadFull(source, buf8[:]); err != nil {
			return nil, fmt.Errorf("%w: index entry %d offset: %v", ErrTruncated, i, err)
		}
		offset := binary.LittleEndian.Uint64(buf8[:])
		entries = append(entries, indexEntry{hash: hash, offset: offset})
		// Internal optimization (spec §4.C, §9 open question): build a
		// hash map at open time rather than scanning linearly on every
		// lookup. Duplicate hashes: last entry in append order wins,
		// matching the Replayer's rule.
		byHash[hash] = int(i)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("ghostcontainer: init zstd decoder: %w", err)
	}

	return &Reader{
		source:  source,
		header:  header,
		entries: entries,
		byHash:  byHash,
		decoder: decoder,
	}, nil
}

// Close releases resources held by the reader's zstd decoder.
func (r *Reader) Close() {
	if r.decoder != nil {
		r.decoder.Close()
	}
}

// Header returns the parsed file header.
func (r *Reader) Header() Header { return r.header }

// FrameCount returns the number of frames in the file.
func (r *Reader) FrameCount() int { return len(r.entries) }

// GetFrame reads and decodes the frame at idx (spec §4.C).
func (r *Reader) GetFrame(idx int) (ghostframe.Frame, error) {
	if idx < 0 || idx >= len(r.entries) {
		return ghostframe.Frame{}, fmt.Errorf("%w: %d", ErrFrameIndexOutOfRange, idx)
	}
	return r.readAt(r.entries[idx].offset)
}

// LookupByHash returns the frame whose request hash matches, if any
// (spec §4.C). On duplicate hashes the last entry in append order wins.
func (r *Reader) LookupByHash(hash [ghostframe.HashSize]byte) (ghostframe.Frame, bool, error) {
	idx, ok := r.byHash[hash]
	if !ok {
		return ghostframe.Frame{}, false, nil
	}
	frame, err := r.readAt(r.entries[idx].offset)
	if err != nil {
		return ghostframe.Frame{}, false, err
	}
	return frame, true, nil
}

func (r *Reader) readAt(offset uint64) (ghostframe.Frame, error) {
	if _, err := r.source.Seek(int64(offset), io.SeekStart); err != nil {
		return ghostframe.Frame{}, fmt.Errorf("ghostcontainer: seek frame: %w", err)
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.source, lenBuf[:]); err != nil {
		return ghostframe.Frame{}, fmt.Errorf("%w: frame length: %v", ErrTruncated, err)
	}
	compressedLen := binary.LittleEndian.Uint32(lenBuf[:])
	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(r.source, compressed); err != nil {
		return ghostframe.Frame{}, fmt.Errorf("%w: frame body: %v", ErrTruncated, err)
	}
	decompressed, err := r.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return ghostframe.Frame{}, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	frame, err := ghostframe.Decode(decompressed)
	if err != nil {
		return ghostframe.Frame{}, fmt.Errorf("ghostcontainer: decode frame: %w", err)
	}
	return frame, nil
}

// Iterator produces frames in append order; it is independent of any
// GetFrame/LookupByHash calls interleaved with it, and restartable via
// NewIterator (spec §4.C "Random access does not invalidate iteration
// position").
type Iterator struct {
	reader *Reader
	next   int
}

// NewIterator returns a fresh forward iterator over the container.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{reader: r}
}

// Next returns the next frame in append order, or ok=false once
// exhausted.
func (it *Iterator) Next() (frame ghostframe.Frame, ok bool, err error) {
	if it.next >= it.reader.FrameCount() {
		return ghostframe.Frame{}, false, nil
	}
	frame, err = it.reader.GetFrame(it.next)
	if err != nil {
		return ghostframe.Frame{}, false, err
	}
	it.next++
	return frame, true, nil
}
