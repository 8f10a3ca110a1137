package compression

import (
	"errors"
	"fmt"
)

// ErrEmptyFrame is returned when a frame has no header byte
var ErrEmptyFrame = errors.New("empty frame")

// Frame compresses data and prefixes it with the algorithm byte so a reader
// can decode it without knowing the writer's settings.
func Frame(c Compressor, data []byte) ([]byte, error) {
	body, err := c.Compress(data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(c.Algorithm()))
	return append(out, body...), nil
}

// Unframe reads the algorithm byte and decompresses the rest
func Unframe(frame []byte) ([]byte, Algorithm, error) {
	if len(frame) == 0 {
		return nil, None, ErrEmptyFrame
	}
	algo := Algorithm(frame[0])
	c, err := GetCompressor(algo)
	if err != nil {
		return nil, algo, err
	}
	data, err := c.Decompress(frame[1:])
	if err != nil {
		return nil, algo, fmt.Errorf("decode %s frame: %w", algo, err)
	}
	return data, algo, nil
}
