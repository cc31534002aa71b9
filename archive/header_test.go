package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinmarc/engarc/errs"
	"github.com/colinmarc/engarc/format"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := newHeader()
	h.CentralDirectoryOffset = 1024
	h.CentralDirectorySize = 640
	h.EntryCount = 2
	h.SetEncryptionMode(format.EncryptionArchive)

	b := h.Bytes()
	require.Len(t, b, format.HeaderSize)

	parsed, err := ParseHeader(b)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
	assert.Equal(t, format.EncryptionArchive, parsed.EncryptionMode())
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	b := newHeader().Bytes()
	b[0] ^= 0xFF

	_, err := ParseHeader(b)
	assert.ErrorIs(t, err, errs.ErrInvalidMagic)
}

func TestParseHeaderRejectsWrongLength(t *testing.T) {
	_, err := ParseHeader(make([]byte, 10))
	assert.Error(t, err)
}

func TestValidateVersionRejectsNewerMajor(t *testing.T) {
	h := newHeader()
	h.VersionMajor = format.VersionMajor + 1

	err := h.ValidateVersion()
	assert.Error(t, err)
}
