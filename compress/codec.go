// Package compress implements the entry-payload codecs the archive format
// supports: a no-op passthrough, LZ4, and Zstd, each usable in regular
// (single-shot) mode; LZ4 and Zstd are also usable in framed (chunked)
// mode, which rejects the no-op method. Same Codec interface and
// factory shape as a columnar-metric compression package, retargeted at
// whole-entry byte slices instead of columnar metric payloads.
package compress

import (
	"fmt"

	"github.com/colinmarc/engarc/format"
)

// Compressor compresses a byte slice.
//
// Memory management: the input slice is never modified. The returned slice
// is newly allocated and owned by the caller, except for NoOpCodec, which
// returns the input slice itself.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses a byte slice previously produced by the matching
// Compressor.
//
// Memory management: the input slice is never modified. The returned slice
// is newly allocated and owned by the caller, except for NoOpCodec, which
// returns the input slice itself.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines Compressor and Decompressor.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec returns the Codec for method, or an error naming target (the
// caller's description of what it was trying to compress) if method is not
// one of None/Lz4/Zstd.
func CreateCodec(method format.Method, target string) (Codec, error) {
	switch method {
	case format.MethodNone:
		return NoOpCodec{}, nil
	case format.MethodLz4:
		return LZ4Codec{}, nil
	case format.MethodZstd:
		return ZstdCodec{}, nil
	default:
		return nil, fmt.Errorf("invalid %s compression method: %s", target, method)
	}
}
