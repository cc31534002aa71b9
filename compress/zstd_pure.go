//go:build !cgo

package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/colinmarc/engarc/errs"
)

// zstdLevel6 is the klauspost EncoderLevel equivalent to the reference
// zstd level 6 the format specifies for regular-mode frames.
var zstdLevel6 = zstd.EncoderLevelFromZstd(6)

// zstdDecoderPool pools zstd decoders for reuse. klauspost/compress/zstd is
// designed for decoder reuse: "The decoder has been designed to operate
// without allocations after a warmup."
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
		)
		if err != nil {
			panic(fmt.Sprintf("compress: failed to create zstd decoder: %v", err))
		}
		return decoder
	},
}

// zstdEncoderPool pools zstd encoders at the format's fixed level 6.
var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstdLevel6),
			zstd.WithEncoderCRC(false), // the archive's own CRC-32 covers this
		)
		if err != nil {
			panic(fmt.Sprintf("compress: failed to create zstd encoder: %v", err))
		}
		return encoder
	},
}

// Compress returns a standard Zstd frame of data at level 6.
func (ZstdCodec) Compress(data []byte) ([]byte, error) {
	encoder := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)

	return encoder.EncodeAll(data, nil), nil
}

// Decompress accepts any valid Zstd frame.
func (ZstdCodec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decoder := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", errs.ErrDecompressionFailed, err)
	}

	return decompressed, nil
}
