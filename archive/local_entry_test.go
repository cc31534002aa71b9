package archive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinmarc/engarc/format"
)

func TestLocalEntryHeaderRoundTrip(t *testing.T) {
	h := LocalEntryHeader{
		UncompressedSize: 4096,
		CompressedSize:   2048,
		CRC32:            0xDEADBEEF,
		ModifiedTime:     1700000000,
		Method:           format.MethodZstd,
		Flags:            0x01,
		Path:             "config/settings.json",
	}

	b, err := h.Bytes()
	require.NoError(t, err)

	parsed, err := ReadLocalEntryHeader(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestReadLocalEntryHeaderRejectsBadSignature(t *testing.T) {
	h := LocalEntryHeader{Path: "a"}
	b, err := h.Bytes()
	require.NoError(t, err)
	b[0] ^= 0xFF

	_, err = ReadLocalEntryHeader(bytes.NewReader(b))
	assert.Error(t, err)
}

func TestLocalEntryHeaderRejectsOversizePath(t *testing.T) {
	h := LocalEntryHeader{Path: string(make([]byte, 0x10000))}
	_, err := h.Bytes()
	assert.Error(t, err)
}
