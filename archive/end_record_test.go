package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinmarc/engarc/format"
)

func TestEndRecordRoundTrip(t *testing.T) {
	e := EndRecord{
		VersionMajor:           format.VersionMajor,
		VersionMinor:           format.VersionMinor,
		CentralDirectoryOffset: 2048,
		CentralDirectorySize:   960,
		EntryCount:             3,
	}

	b := e.Bytes()
	require.Len(t, b, format.EndRecordSize)

	parsed, err := ParseEndRecord(b)
	require.NoError(t, err)
	assert.Equal(t, e, parsed)
}

func TestParseEndRecordRejectsBadSignature(t *testing.T) {
	b := EndRecord{}.Bytes()
	b[0] ^= 0xFF

	_, err := ParseEndRecord(b)
	assert.Error(t, err)
}

func TestValidateAgainstHeaderDetectsMismatch(t *testing.T) {
	h := newHeader()
	h.EntryCount = 3
	h.CentralDirectoryOffset = 2048
	h.CentralDirectorySize = 960

	e := EndRecord{
		VersionMajor:           h.VersionMajor,
		VersionMinor:           h.VersionMinor,
		CentralDirectoryOffset: 2048,
		CentralDirectorySize:   960,
		EntryCount:             3,
	}
	assert.NoError(t, e.ValidateAgainstHeader(h))

	e.EntryCount = 4
	assert.Error(t, e.ValidateAgainstHeader(h))
}
