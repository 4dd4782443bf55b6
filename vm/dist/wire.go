package dist

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Canonical encoding keeps chunk bytes deterministic, so identical programs
// produce identical payloads on every worker.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalChunk serializes a ProgramChunk to CBOR bytes.
func MarshalChunk(c *ProgramChunk) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// UnmarshalChunk deserializes a ProgramChunk from CBOR bytes.
func UnmarshalChunk(data []byte) (*ProgramChunk, error) {
	var c ProgramChunk
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("dist: unmarshal chunk: %w", err)
	}
	return &c, nil
}

// MarshalBatch serializes a Batch to CBOR bytes.
func MarshalBatch(b *Batch) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// UnmarshalBatch deserializes a Batch from CBOR bytes.
func UnmarshalBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("dist: unmarshal batch: %w", err)
	}
	return &b, nil
}
