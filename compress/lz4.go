package compress

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/colinmarc/engarc/errs"
)

// lz4CompressorPool pools lz4.Compressor instances; the compressor carries
// internal state that benefits from reuse across entries.
var lz4CompressorPool = sync.Pool{
	New: func() any { return &lz4.Compressor{} },
}

// LZ4Codec implements the archive's regular-mode LZ4 payload: a
// little-endian uint32 uncompressed length prepended to a raw LZ4 block.
// Prepending the length lets Decompress size its output buffer exactly,
// rather than guessing and retrying.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

// Compress returns len(data):u32_le followed by an LZ4 block of data.
func (LZ4Codec) Compress(data []byte) ([]byte, error) {
	dst := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(dst[:4], uint32(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %w", errs.ErrCompressionFailed, err)
	}
	if n == 0 {
		// lz4 reports n == 0 when the block didn't compress (incompressible
		// input) rather than writing an expanded block. Returning dst[:4+0]
		// here would look like a 4-byte compressed payload to the writer's
		// size comparison and get kept as a bogus empty LZ4 block, so report
		// the true (larger) size and let the caller fall back to storing raw.
		return dst[:4+len(data)], nil
	}
	return dst[:4+n], nil
}

// Decompress reads the prepended length and decompresses exactly that many
// bytes from the LZ4 block that follows.
func (LZ4Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: lz4 payload shorter than length prefix", errs.ErrDecompressionFailed)
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[:4])
	dst := make([]byte, uncompressedSize)

	n, err := lz4.UncompressBlock(data[4:], dst)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %w", errs.ErrDecompressionFailed, err)
	}
	if uint32(n) != uncompressedSize {
		return nil, fmt.Errorf("%w: lz4 decompressed %d bytes, expected %d", errs.ErrDecompressionFailed, n, uncompressedSize)
	}

	return dst[:n], nil
}
