package storage

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ErrDecompressedTooLarge is returned when an input inflates past the
// configured maximum size.
var ErrDecompressedTooLarge = errors.New("decompressed input exceeds size limit")

// detectCompression returns the compression format of data, or "" when the
// data does not start with a known compression magic.
func detectCompression(data []byte) string {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return "zstd"
	case bytes.HasPrefix(data, gzipMagic):
		return "gzip"
	default:
		return ""
	}
}

// decompress inflates gzip or zstd wrapped data to at most limit bytes.
// Data with no known compression magic is returned unchanged.
func decompress(data []byte, limit int64) ([]byte, string, error) {
	algorithm := detectCompression(data)

	switch algorithm {
	case "gzip":
		gzipReader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, algorithm, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()

		out, err := readLimited(gzipReader, limit)
		if err != nil {
			return nil, algorithm, fmt.Errorf("failed to decompress gzip data: %w", err)
		}
		return out, algorithm, nil
	case "zstd":
		dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderMaxMemory(uint64(limit)))
		if err != nil {
			return nil, algorithm, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()

		out, err := readLimited(dec, limit)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			err = ErrDecompressedTooLarge
		}
		if err != nil {
			return nil, algorithm, fmt.Errorf("failed to decompress zstd data: %w", err)
		}
		return out, algorithm, nil
	default:
		return data, "", nil
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	n := limit
	if n < math.MaxInt64 {
		n++
	}
	out, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrDecompressedTooLarge, limit)
	}
	return out, nil
}
