package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// float32Size is the width of one encoded vector component.
const float32Size = 4

// EncodeVector packs vec into the feature_vectors.vector column layout:
// components in order, each a little-endian float32, no header.
func EncodeVector(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	blob := make([]byte, 0, len(vec)*float32Size)
	for _, v := range vec {
		blob = binary.LittleEndian.AppendUint32(blob, math.Float32bits(v))
	}
	return blob
}

// DecodeVector unpacks a feature_vectors.vector column.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob)%float32Size != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes is not a whole number of float32 components", len(blob))
	}
	vec := make([]float32, len(blob)/float32Size)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("reading vector blob: %w", err)
	}
	return vec, nil
}
