package ghostcontainer

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the fixed 8-byte file signature.
var Magic = [8]byte{'G', 'H', 'S', 'T', 'L', 'I', 'N', 'E'}

// FormatVersion is the only version this package writes and accepts.
const FormatVersion uint32 = 1

// GitSHASize is the fixed length of an optional git commit identifier.
const GitSHASize = 20

// RunIDSize is the fixed length of a parent run identifier.
const RunIDSize = 32

// Header is the fixed-layout metadata block written at the start of a
// .ghostline file (spec §3 "File", §6 "HEADER").
type Header struct {
	Version     uint32
	StartedAt   uint64
	GitSHA      *[GitSHASize]byte
	ParentRunID *[RunIDSize]byte
	ForkAtStep  uint32 // only meaningful when ParentRunID != nil
}

// HasFork reports whether this header carries fork lineage metadata.
func (h Header) HasFork() bool { return h.ParentRunID != nil }

func writeHeader(w io.Writer, h Header) (int64, error) {
	var written int64

	n, err := w.Write(Magic[:])
	written += int64(n)
	if err != nil {
		return written, err
	}

	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], FormatVersion)
	n, err = w.Write(buf[:4])
	written += int64(n)
	if err != nil {
		return written, err
	}

	binary.LittleEndian.PutUint64(buf[:8], h.StartedAt)
	n, err = w.Write(buf[:8])
	written += int64(n)
	if err != nil {
		return written, err
	}

	if h.GitSHA != nil {
		n, err = w.Write([]byte{0x01})
		written += int64(n)
		if err != nil {
			return written, err
		}
		n, err = w.Write(h.GitSHA[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
	} else {
		n, err = w.Write([]byte{0x00})
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	if h.ParentRunID != nil {
		n, err = w.Write([]byte{0x01})
		written += int64(n)
		if err != nil {
			return written, err
		}
		n, err = w.Write(h.ParentRunID[:])
		written += int64(n)
		if err != nil {
			return written, err
		}
		binary.LittleEndian.PutUint32(buf[:4], h.ForkAtStep)
		n, err = w.Write(buf[:4])
		written += int64(n)
		if err != nil {
			return written, err
		}
	} else {
		n, err = w.Write([]byte{0x00})
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

func readHeader(r io.Reader) (Header, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if magic != Magic {
		return Header{}, ErrBadMagic
	}

	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	version := binary.LittleEndian.Uint32(buf[:4])
	if version != FormatVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	if _, err := io.ReadFull(r, buf[:8]); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	startedAt := binary.LittleEndian.Uint64(buf[:8])

	h := Header{Version: version, StartedAt: startedAt}

	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if flag[0] == 0x01 {
		var sha [GitSHASize]byte
		if _, err := io.ReadFull(r, sha[:]); err != nil {
			return Header{}, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		h.GitSHA = &sha
	}

	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if flag[0] == 0x01 {
		var runID [RunIDSize]byte
		if _, err := io.ReadFull(r, runID[:]); err != nil {
			return Header{}, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		h.ParentRunID = &runID
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return Header{}, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		h.ForkAtStep = binary.LittleEndian.Uint32(buf[:4])
	}

	return h, nil
}
