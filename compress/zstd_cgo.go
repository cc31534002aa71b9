//go:build cgo

package compress

import (
	"fmt"

	"github.com/valyala/gozstd"

	"github.com/colinmarc/engarc/errs"
)

// Compress returns a standard Zstd frame of data at level 6, using the cgo
// gozstd bindings for throughput on builds that can pay the cgo cost.
func (ZstdCodec) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, 6), nil
}

// Decompress accepts any valid Zstd frame, including ones produced by the
// pure-Go backend.
func (ZstdCodec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decompressed, err := gozstd.Decompress(nil, data)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd (cgo): %w", errs.ErrDecompressionFailed, err)
	}

	return decompressed, nil
}
