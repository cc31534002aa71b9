package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/colinmarc/engarc/errs"
	"github.com/colinmarc/engarc/format"
)

// Header is the fixed 64-byte structure at offset 0 of every archive. Its
// layout is defined in spec.md §4.1; field order here matches the on-disk
// byte order exactly.
type Header struct {
	VersionMajor           uint16
	VersionMinor           uint16
	HeaderCRC              uint32 // reserved, always 0
	CentralDirectoryOffset uint64
	CentralDirectorySize   uint64
	EntryCount             uint32
	ContentVersion         uint32 // reserved, always 0
	Flags                  uint32
}

// newHeader returns a Header for a fresh write, with this implementation's
// current version and zero entry count; Finalize patches the remaining
// fields once the central directory is known.
func newHeader() Header {
	return Header{
		VersionMajor: format.VersionMajor,
		VersionMinor: format.VersionMinor,
	}
}

// EncryptionMode extracts the archive's encryption scope from Flags bits
// [0..=1].
func (h Header) EncryptionMode() format.EncryptionMode {
	return format.EncryptionModeFromFlags(h.Flags)
}

// SetEncryptionMode folds mode into Flags, leaving other bits untouched.
func (h *Header) SetEncryptionMode(mode format.EncryptionMode) {
	h.Flags = mode.Flags(h.Flags)
}

// ValidateVersion fails with ErrUnsupportedVersion if VersionMajor is newer
// than this implementation understands. Minor-version differences are
// accepted.
func (h Header) ValidateVersion() error {
	if h.VersionMajor > format.VersionMajor {
		return fmt.Errorf("%w: archive version %d.%d, max supported major is %d",
			errs.ErrUnsupportedVersion, h.VersionMajor, h.VersionMinor, format.VersionMajor)
	}
	return nil
}

// Bytes serializes the header into exactly format.HeaderSize bytes,
// including the magic number and zeroed reserved region.
func (h Header) Bytes() []byte {
	b := make([]byte, format.HeaderSize)
	copy(b[0:8], format.Magic[:])
	binary.LittleEndian.PutUint16(b[8:10], h.VersionMajor)
	binary.LittleEndian.PutUint16(b[10:12], h.VersionMinor)
	binary.LittleEndian.PutUint32(b[12:16], h.HeaderCRC)
	binary.LittleEndian.PutUint64(b[16:24], h.CentralDirectoryOffset)
	binary.LittleEndian.PutUint64(b[24:32], h.CentralDirectorySize)
	binary.LittleEndian.PutUint32(b[32:36], h.EntryCount)
	binary.LittleEndian.PutUint32(b[36:40], h.ContentVersion)
	binary.LittleEndian.PutUint32(b[40:44], h.Flags)
	// b[44:64] reserved, already zero.
	return b
}

// ParseHeader parses a Header from exactly format.HeaderSize bytes,
// validating the magic number.
func ParseHeader(data []byte) (Header, error) {
	if len(data) != format.HeaderSize {
		return Header{}, fmt.Errorf("%w: header must be %d bytes, got %d", errs.ErrInvalidStructure, format.HeaderSize, len(data))
	}
	if [8]byte(data[0:8]) != format.Magic {
		return Header{}, errs.ErrInvalidMagic
	}

	h := Header{
		VersionMajor:           binary.LittleEndian.Uint16(data[8:10]),
		VersionMinor:           binary.LittleEndian.Uint16(data[10:12]),
		HeaderCRC:              binary.LittleEndian.Uint32(data[12:16]),
		CentralDirectoryOffset: binary.LittleEndian.Uint64(data[16:24]),
		CentralDirectorySize:   binary.LittleEndian.Uint64(data[24:32]),
		EntryCount:             binary.LittleEndian.Uint32(data[32:36]),
		ContentVersion:         binary.LittleEndian.Uint32(data[36:40]),
		Flags:                  binary.LittleEndian.Uint32(data[40:44]),
	}

	return h, nil
}
