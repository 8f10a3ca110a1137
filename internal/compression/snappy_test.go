package compression

import (
	"bytes"
	"testing"

	"github.com/golang/snappy"
)

func TestSnappyCompressor_RoundTrip(t *testing.T) {
	compressor := NewSnappyCompressor()

	if compressor.Algorithm() != Snappy {
		t.Errorf("Expected algorithm Snappy (%d), got %d", Snappy, compressor.Algorithm())
	}

	large := make([]byte, 1024*1024)
	for i := range large {
		large[i] = byte(i % 256)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"json record", []byte(`{"id":"a","userId":"1","unit":"KELVIN","value":300.15}`)},
		{"binary", []byte{0x00, 0xFF, 0x01, 0xFE, 0x02, 0xFD, 0x7F, 0x80, 0x81}},
		{"repeating", bytes.Repeat([]byte("A"), 1000)},
		{"1MB", large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := compressor.Compress(tt.data)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			decompressed, err := compressor.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}

			if !bytes.Equal(tt.data, decompressed) {
				t.Errorf("Decompressed data does not match original")
			}
		})
	}
}

func TestSnappyCompressor_EmptyData(t *testing.T) {
	compressor := NewSnappyCompressor()

	compressed, err := compressor.Compress([]byte{})
	if err != nil {
		t.Fatalf("Compress empty data failed: %v", err)
	}
	if len(compressed) != 0 {
		t.Errorf("Expected empty compressed data, got length %d", len(compressed))
	}

	decompressed, err := compressor.Decompress([]byte{})
	if err != nil {
		t.Fatalf("Decompress empty data failed: %v", err)
	}
	if len(decompressed) != 0 {
		t.Errorf("Expected empty decompressed data, got length %d", len(decompressed))
	}
}

func TestSnappyCompressor_InvalidCompressedData(t *testing.T) {
	compressor := NewSnappyCompressor()

	if _, err := compressor.Decompress([]byte{0xFF, 0xFF, 0xFF, 0xFF}); err == nil {
		t.Error("Expected error when decompressing invalid data, got nil")
	}
}

func TestSnappyCompressor_SizeLimit(t *testing.T) {
	compressor := NewSnappyCompressor()
	oversized := make([]byte, MaxDecodedSize+1)

	if _, err := compressor.Compress(oversized); err == nil {
		t.Error("Expected error compressing an oversized payload")
	}

	// produced by a writer without the limit
	bomb := snappy.Encode(nil, oversized)
	if _, err := compressor.Decompress(bomb); err == nil {
		t.Error("Expected error decompressing an oversized payload")
	}
}
