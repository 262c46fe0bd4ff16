package bgen

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression indicates how (and whether) the SNP block probability is compressed
type Compression uint32

const (
	CompressionDisabled Compression = iota
	CompressionZLIB
	CompressionZStandard
)

func (c Compression) String() string {
	switch c {
	case CompressionDisabled:
		return "CompressionDisabled"
	case CompressionZLIB:
		return "CompressionZLIB"
	case CompressionZStandard:
		return "CompressionZStandard"

	default:
		return "Illegal selection"
	}
}

var (
	zstdOnce    sync.Once
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

// blockDecoder returns the shared zstd decoder, built on first use. A
// nil-reader decoder only serves DecodeAll, which is safe for concurrent use.
func blockDecoder() (*zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdDecoder, zstdErr
}

// decompress expands src, which must inflate to exactly size bytes, into a
// buffer that may reuse dst.
func decompress(c Compression, dst, src []byte, size int) ([]byte, error) {
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]

	switch c {
	case CompressionZLIB:
		rdr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		defer rdr.Close()
		if _, err := io.ReadFull(rdr, dst); err != nil {
			return nil, fmt.Errorf("zlib block did not inflate to %d bytes: %w", size, err)
		}
		return dst, nil

	case CompressionZStandard:
		dec, err := blockDecoder()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder unavailable: %w", err)
		}
		out, err := dec.DecodeAll(src, dst[:0])
		if err != nil {
			return nil, err
		}
		if len(out) != size {
			return nil, fmt.Errorf("zstd block inflated to %d bytes, expected %d", len(out), size)
		}
		return out, nil
	}

	return nil, fmt.Errorf("Compression choice %s cannot be decompressed", c)
}
