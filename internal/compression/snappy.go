package compression

import (
	"fmt"

	"github.com/golang/snappy"
)

// MaxDecodedSize bounds the payload a single message may expand to
const MaxDecodedSize = 4 << 20

// SnappyCompressor implements Compressor using Snappy algorithm
type SnappyCompressor struct{}

// NewSnappyCompressor creates a new Snappy compressor
func NewSnappyCompressor() *SnappyCompressor {
	return &SnappyCompressor{}
}

// Compress compresses data using Snappy
func (s *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if len(data) > MaxDecodedSize {
		return nil, fmt.Errorf("snappy compress: payload of %d bytes exceeds %d", len(data), MaxDecodedSize)
	}
	return snappy.Encode(make([]byte, snappy.MaxEncodedLen(len(data))), data), nil
}

// Decompress decompresses Snappy compressed data
func (s *SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	if n > MaxDecodedSize {
		return nil, fmt.Errorf("snappy decompress: payload of %d bytes exceeds %d", n, MaxDecodedSize)
	}

	decompressed, err := snappy.Decode(make([]byte, n), data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	return decompressed, nil
}

// Algorithm returns Snappy
func (s *SnappyCompressor) Algorithm() Algorithm {
	return Snappy
}
