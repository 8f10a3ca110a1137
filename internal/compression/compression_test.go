package compression

import (
	"bytes"
	"errors"
	"testing"
)

func TestNoneCompressor_CompressDecompress(t *testing.T) {
	compressor := &NoneCompressor{}

	if compressor.Algorithm() != None {
		t.Errorf("Expected algorithm None (%d), got %d", None, compressor.Algorithm())
	}

	original := []byte(`{"unit":"METER","value":12.5}`)

	compressed, err := compressor.Compress(original)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !bytes.Equal(original, compressed) {
		t.Error("NoneCompressor.Compress should return identical data")
	}

	decompressed, err := compressor.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(original, decompressed) {
		t.Error("NoneCompressor.Decompress should return identical data")
	}
}

func TestGetCompressor(t *testing.T) {
	for _, algo := range []Algorithm{None, Snappy} {
		compressor, err := GetCompressor(algo)
		if err != nil {
			t.Fatalf("GetCompressor(%s) failed: %v", algo, err)
		}
		if compressor.Algorithm() != algo {
			t.Errorf("Expected %s algorithm, got %s", algo, compressor.Algorithm())
		}
	}

	if _, err := GetCompressor(Algorithm(99)); err == nil {
		t.Error("Expected error for unsupported algorithm 99, got nil")
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"snappy", Snappy, false},
		{" Snappy ", Snappy, false},
		{"zstd", None, true},
	}

	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestAlgorithmString(t *testing.T) {
	if None.String() != "none" || Snappy.String() != "snappy" {
		t.Errorf("unexpected names: %s, %s", None, Snappy)
	}
	if Algorithm(7).String() != "algorithm(7)" {
		t.Errorf("unexpected name for unknown algorithm: %s", Algorithm(7))
	}
}

func TestFrameRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"unit":"CELSIUS","value":21.3}`), 20)

	for _, algo := range []Algorithm{None, Snappy} {
		compressor, _ := GetCompressor(algo)

		frame, err := Frame(compressor, payload)
		if err != nil {
			t.Fatalf("Frame(%s) failed: %v", algo, err)
		}
		if Algorithm(frame[0]) != algo {
			t.Errorf("Expected header %d, got %d", algo, frame[0])
		}

		data, got, err := Unframe(frame)
		if err != nil {
			t.Fatalf("Unframe(%s) failed: %v", algo, err)
		}
		if got != algo {
			t.Errorf("Expected algorithm %s, got %s", algo, got)
		}
		if !bytes.Equal(payload, data) {
			t.Errorf("%s frame did not round trip", algo)
		}
	}
}

func TestUnframeErrors(t *testing.T) {
	if _, _, err := Unframe(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Expected ErrEmptyFrame, got %v", err)
	}

	if _, _, err := Unframe([]byte{42, 1, 2}); err == nil {
		t.Error("Expected error for unknown algorithm header")
	}

	if _, _, err := Unframe([]byte{byte(Snappy), 0xff, 0xff, 0xff}); err == nil {
		t.Error("Expected error for corrupt snappy body")
	}
}

func BenchmarkFrame(b *testing.B) {
	compressor := NewSnappyCompressor()
	data := bytes.Repeat([]byte(`{"unit":"FEET","value":3.25}`), 10)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		frame, _ := Frame(compressor, data)
		_, _, _ = Unframe(frame)
	}
}
