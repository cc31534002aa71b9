package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/colinmarc/engarc/errs"
	"github.com/colinmarc/engarc/format"
)

// EndRecord is the fixed 64-byte structure occupying the last 64 bytes of
// every archive. It duplicates header fields so a reader can detect
// truncation or appended data by seeking to file_size-64 first, before
// trusting anything else in the file.
type EndRecord struct {
	VersionMajor           uint16
	VersionMinor           uint16
	CentralDirectoryOffset uint64
	CentralDirectorySize   uint64
	EntryCount             uint32
	ArchiveCRC32           uint32 // reserved, always 0
}

// Bytes serializes the end record into exactly format.EndRecordSize bytes.
func (e EndRecord) Bytes() []byte {
	b := make([]byte, format.EndRecordSize)
	copy(b[0:4], format.EndSignature[:])
	binary.LittleEndian.PutUint16(b[4:6], e.VersionMajor)
	binary.LittleEndian.PutUint16(b[6:8], e.VersionMinor)
	binary.LittleEndian.PutUint64(b[8:16], e.CentralDirectoryOffset)
	binary.LittleEndian.PutUint64(b[16:24], e.CentralDirectorySize)
	binary.LittleEndian.PutUint32(b[24:28], e.EntryCount)
	binary.LittleEndian.PutUint32(b[28:32], e.ArchiveCRC32)
	// b[32:64] reserved, already zero.
	return b
}

// ParseEndRecord parses an end record from exactly format.EndRecordSize
// bytes, validating the "ENDR" signature. archive_crc32 is accepted as any
// value per spec.md §9: a future version may define it as a CRC over the
// pre-ENDR region, but current readers must not reject non-zero values.
func ParseEndRecord(data []byte) (EndRecord, error) {
	if len(data) != format.EndRecordSize {
		return EndRecord{}, fmt.Errorf("%w: end record must be %d bytes, got %d", errs.ErrInvalidStructure, format.EndRecordSize, len(data))
	}
	if [4]byte(data[0:4]) != format.EndSignature {
		return EndRecord{}, fmt.Errorf("%w: bad ENDR signature", errs.ErrInvalidStructure)
	}

	return EndRecord{
		VersionMajor:           binary.LittleEndian.Uint16(data[4:6]),
		VersionMinor:           binary.LittleEndian.Uint16(data[6:8]),
		CentralDirectoryOffset: binary.LittleEndian.Uint64(data[8:16]),
		CentralDirectorySize:   binary.LittleEndian.Uint64(data[16:24]),
		EntryCount:             binary.LittleEndian.Uint32(data[24:28]),
		ArchiveCRC32:           binary.LittleEndian.Uint32(data[28:32]),
	}, nil
}

// ValidateAgainstHeader cross-checks e against h per spec.md §3 invariants
// 5 and 6: entry counts and central directory location/size must match.
func (e EndRecord) ValidateAgainstHeader(h Header) error {
	if e.EntryCount != h.EntryCount {
		return fmt.Errorf("%w: end record entry_count %d != header entry_count %d", errs.ErrInvalidStructure, e.EntryCount, h.EntryCount)
	}
	if e.CentralDirectoryOffset != h.CentralDirectoryOffset {
		return fmt.Errorf("%w: end record cd_offset %d != header cd_offset %d", errs.ErrInvalidStructure, e.CentralDirectoryOffset, h.CentralDirectoryOffset)
	}
	if e.CentralDirectorySize != h.CentralDirectorySize {
		return fmt.Errorf("%w: end record cd_size %d != header cd_size %d", errs.ErrInvalidStructure, e.CentralDirectorySize, h.CentralDirectorySize)
	}
	if e.VersionMajor != h.VersionMajor || e.VersionMinor != h.VersionMinor {
		return fmt.Errorf("%w: end record version %d.%d != header version %d.%d", errs.ErrInvalidStructure, e.VersionMajor, e.VersionMinor, h.VersionMajor, h.VersionMinor)
	}

	return nil
}
