package compress

import (
	"encoding/binary"
	"fmt"

	"github.com/colinmarc/engarc/errs"
	"github.com/colinmarc/engarc/format"
	"github.com/colinmarc/engarc/internal/pool"
)

// CompressFramed compresses data as a sequence of independently compressed
// frames of up to format.FrameSize input bytes each, using method (which
// must be Lz4 or Zstd; framed None is invalid). The layout is:
//
//	frame_count:u32_le ‖ for each frame: frame_size:u32_le ‖ frame_bytes
//
// The writer selects framed mode for entries whose uncompressed_size is at
// least format.FramedModeThreshold; 64KiB frames bound memory use during
// decompression of multi-gigabyte entries.
func CompressFramed(data []byte, method format.Method) ([]byte, error) {
	if method != format.MethodLz4 && method != format.MethodZstd {
		return nil, fmt.Errorf("%w: framed compression requires Lz4 or Zstd, got %s", errs.ErrCompressionFailed, method)
	}

	codec, err := CreateCodec(method, "framed")
	if err != nil {
		return nil, err
	}

	frameCount := (len(data) + format.FrameSize - 1) / format.FrameSize
	if len(data) == 0 {
		frameCount = 0
	}

	out := pool.GetPayloadBuffer()
	defer pool.PutPayloadBuffer(out)

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(frameCount))
	out.Write(countBuf[:])

	frameBuf := pool.GetFrameBuffer()
	defer pool.PutFrameBuffer(frameBuf)

	for i := 0; i < frameCount; i++ {
		start := i * format.FrameSize
		end := start + format.FrameSize
		if end > len(data) {
			end = len(data)
		}

		compressedFrame, err := codec.Compress(data[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", errs.ErrCompressionFailed, i, err)
		}

		var sizeBuf [4]byte
		binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(compressedFrame)))
		out.Write(sizeBuf[:])
		out.Write(compressedFrame)
	}

	result := make([]byte, out.Len())
	copy(result, out.Bytes())

	return result, nil
}

// DecompressFramed reverses CompressFramed. wantSize is the entry's declared
// uncompressed_size; the sum of all decompressed frame lengths must equal
// it, or DecompressFramed fails with ErrDecompressionFailed.
func DecompressFramed(data []byte, method format.Method, wantSize uint64) ([]byte, error) {
	if method != format.MethodLz4 && method != format.MethodZstd {
		return nil, fmt.Errorf("%w: framed decompression requires Lz4 or Zstd, got %s", errs.ErrDecompressionFailed, method)
	}

	codec, err := CreateCodec(method, "framed")
	if err != nil {
		return nil, err
	}

	if len(data) < 4 {
		return nil, fmt.Errorf("%w: framed payload shorter than frame count", errs.ErrDecompressionFailed)
	}
	frameCount := binary.LittleEndian.Uint32(data[:4])
	pos := uint32(4)

	out := make([]byte, 0, wantSize)
	for i := uint32(0); i < frameCount; i++ {
		if uint64(pos)+4 > uint64(len(data)) {
			return nil, fmt.Errorf("%w: frame %d: truncated frame size", errs.ErrDecompressionFailed, i)
		}
		frameSize := binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4

		if uint64(pos)+uint64(frameSize) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: frame %d: truncated frame data", errs.ErrDecompressionFailed, i)
		}
		frameData := data[pos : pos+frameSize]
		pos += frameSize

		decompressed, err := codec.Decompress(frameData)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", errs.ErrDecompressionFailed, i, err)
		}

		out = append(out, decompressed...)
	}

	if uint64(len(out)) != wantSize {
		return nil, fmt.Errorf("%w: framed payload decompressed to %d bytes, expected %d", errs.ErrDecompressionFailed, len(out), wantSize)
	}

	return out, nil
}
