package ghostcontainer

import "errors"

// Error taxonomy per spec §7. Each is a sentinel so callers can use
// errors.Is against the underlying cause wrapped with fmt.Errorf("%w").
var (
	// ErrBadMagic is returned when a file's first 8 bytes are not "GHSTLINE".
	ErrBadMagic = errors.New("ghostcontainer: bad magic")
	// ErrUnsupportedVersion is returned when the header version is not 1.
	ErrUnsupportedVersion = errors.New("ghostcontainer: unsupported version")
	// ErrTruncated is returned when a read runs past EOF while parsing
	// the header, body, or tail.
	ErrTruncated = errors.New("ghostcontainer: truncated file")
	// ErrDecompress is returned when zstd rejects a frame body.
	ErrDecompress = errors.New("ghostcontainer: decompress failed")
	// ErrFrameIndexOutOfRange is returned by GetFrame for an out-of-bounds index.
	ErrFrameIndexOutOfRange = errors.New("ghostcontainer: frame index out of range")
)
