// Package ghostframe implements the wire codec for a single captured
// request/response pair (spec §3, §4.A).
package ghostframe

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// HashSize is the length in bytes of a request digest.
const HashSize = sha256.Size

// Frame is the unit of capture: a request, its response, and timing
// metadata. RequestHash is always SHA-256 over RequestBytes as written.
type Frame struct {
	RequestHash   [HashSize]byte
	RequestBytes  []byte
	ResponseBytes []byte
	LatencyMs     uint64
	Timestamp     uint64
}

// New builds a Frame, computing RequestHash from requestBytes.
func New(requestBytes, responseBytes []byte, latencyMs, timestamp uint64) Frame {
	return Frame{
		RequestHash:   sha256.Sum256(requestBytes),
		RequestBytes:  requestBytes,
		ResponseBytes: responseBytes,
		LatencyMs:     latencyMs,
		Timestamp:     timestamp,
	}
}

// the five wire keys; literal strings per spec §9 ("keep the wire keys
// as literal strings"). Encoding writes an explicit five-entry map
// rather than relying on struct-tag reflection.
const (
	keyRequestHash   = "request_hash"
	keyRequestBytes  = "request_bytes"
	keyResponseBytes = "response_bytes"
	keyLatencyMs     = "latency_ms"
	keyTimestamp     = "timestamp"
)

// Encode serializes the frame to its msgpack record body.
func (f Frame) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.EncodeMapLen(5); err != nil {
		return nil, err
	}
	fields := []struct {
		key string
		val any
	}{
		{keyRequestHash, f.RequestHash[:]},
		{keyRequestBytes, f.RequestBytes},
		{keyResponseBytes, f.ResponseBytes},
		{keyLatencyMs, f.LatencyMs},
		{keyTimestamp, f.Timestamp},
	}
	for _, field := range fields {
		if err := enc.EncodeString(field.key); err != nil {
			return nil, err
		}
		switch v := field.val.(type) {
		case []byte:
			if err := enc.EncodeBytes(v); err != nil {
				return nil, err
			}
		case uint64:
			if err := enc.EncodeUint64(v); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a Frame from its msgpack record body. The stored
// request_hash is trusted as-is; it is not recomputed here (spec §4.A —
// "reader code verifies it only in tests").
func Decode(data []byte) (Frame, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	n, err := dec.DecodeMapLen()
	if err != nil {
		return Frame{}, fmt.Errorf("ghostframe: decode map header: %w", err)
	}
	var f Frame
	var haveHash bool
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return Frame{}, fmt.Errorf("ghostframe: decode key: %w", err)
		}
		switch key {
		case keyRequestHash:
			raw, err := dec.DecodeBytes()
			if err != nil {
				return Frame{}, fmt.Errorf("ghostframe: decode request_hash: %w", err)
			}
			if len(raw) != HashSize {
				return Frame{}, fmt.Errorf("ghostframe: request_hash has length %d, want %d", len(raw), HashSize)
			}
			copy(f.RequestHash[:], raw)
			haveHash = true
		case keyRequestBytes:
			f.RequestBytes, err = dec.DecodeBytes()
		case keyResponseBytes:
			f.ResponseBytes, err = dec.DecodeBytes()
		case keyLatencyMs:
			f.LatencyMs, err = dec.DecodeUint64()
		case keyTimestamp:
			f.Timestamp, err = dec.DecodeUint64()
		default:
			var skip any
			err = dec.Decode(&skip)
		}
		if err != nil {
			return Frame{}, fmt.Errorf("ghostframe: decode field %q: %w", key, err)
		}
	}
	if !haveHash {
		return Frame{}, fmt.Errorf("ghostframe: frame missing request_hash field")
	}
	return f, nil
}

// Verify reports whether RequestHash matches SHA-256(RequestBytes).
func (f Frame) Verify() bool {
	return sha256.Sum256(f.RequestBytes) == f.RequestHash
}
