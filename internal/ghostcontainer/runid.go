package ghostcontainer

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/joboya/ghostline/internal/ghostframe"
)

// RunID computes a run's canonical lineage identifier (spec §3 "Run
// identity", glossary): SHA-256(LE64(started_at) || first_frame.request_hash).
func RunID(startedAt uint64, firstRequestHash [ghostframe.HashSize]byte) [32]byte {
	var buf [8 + ghostframe.HashSize]byte
	binary.LittleEndian.PutUint64(buf[:8], startedAt)
	copy(buf[8:], firstRequestHash[:])
	return sha256.Sum256(buf[:])
}
