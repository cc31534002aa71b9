package archive

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/colinmarc/engarc/errs"
	"github.com/colinmarc/engarc/format"
)

// Entry is the central-directory-derived metadata for one archive member:
// path, both sizes, CRC-32, modification time, compression method, flags,
// and the absolute file offset of its local entry header. GetEntry and
// ListEntries return these; an Entry is a snapshot decoded at Initialize
// time and is never mutated afterward.
type Entry struct {
	Path             string
	DataOffset       uint64
	UncompressedSize uint64
	CompressedSize   uint64
	CRC32            uint32
	ModifiedTime     uint64
	Method           format.Method
	Flags            uint8
}

// normalizePath replaces '\\' with '/' and rejects paths that are empty,
// contain a NUL byte, or exceed format.MaxPathLength bytes.
func normalizePath(path string) (string, error) {
	normalized := strings.ReplaceAll(path, "\\", "/")

	if normalized == "" || strings.ContainsRune(normalized, 0) {
		return "", errs.ErrInvalidPath
	}
	if len(normalized) > format.MaxPathLength {
		return "", fmt.Errorf("%w: %d bytes (max %d)", errs.ErrPathTooLong, len(normalized), format.MaxPathLength)
	}

	return normalized, nil
}

// Bytes serializes e as exactly format.CentralEntrySize bytes.
func (e Entry) Bytes() ([]byte, error) {
	pathBytes := []byte(e.Path)
	if len(pathBytes) > format.MaxPathLength {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", errs.ErrPathTooLong, len(pathBytes), format.MaxPathLength)
	}

	buf := make([]byte, format.CentralEntrySize)
	pos := 0
	copy(buf[pos:], format.CentralSignature[:])
	pos += 4
	binary.LittleEndian.PutUint64(buf[pos:], e.DataOffset)
	pos += 8
	binary.LittleEndian.PutUint64(buf[pos:], e.UncompressedSize)
	pos += 8
	binary.LittleEndian.PutUint64(buf[pos:], e.CompressedSize)
	pos += 8
	binary.LittleEndian.PutUint32(buf[pos:], e.CRC32)
	pos += 4
	binary.LittleEndian.PutUint64(buf[pos:], e.ModifiedTime)
	pos += 8
	buf[pos] = byte(e.Method)
	pos++
	buf[pos] = e.Flags
	pos++
	binary.LittleEndian.PutUint16(buf[pos:], uint16(len(pathBytes)))
	pos += 2
	copy(buf[pos:pos+256], pathBytes) // remainder of the 256-byte buffer stays zero
	// pos+256 .. end (20 bytes) reserved, already zero.

	return buf, nil
}

// ParseEntry parses one central directory record from exactly
// format.CentralEntrySize bytes.
func ParseEntry(data []byte) (Entry, error) {
	if len(data) != format.CentralEntrySize {
		return Entry{}, fmt.Errorf("%w: central directory entry must be %d bytes, got %d", errs.ErrInvalidStructure, format.CentralEntrySize, len(data))
	}
	if [4]byte(data[0:4]) != format.CentralSignature {
		return Entry{}, fmt.Errorf("%w: bad CENT signature", errs.ErrInvalidStructure)
	}

	e := Entry{
		DataOffset:       binary.LittleEndian.Uint64(data[4:12]),
		UncompressedSize: binary.LittleEndian.Uint64(data[12:20]),
		CompressedSize:   binary.LittleEndian.Uint64(data[20:28]),
		CRC32:            binary.LittleEndian.Uint32(data[28:32]),
		ModifiedTime:     binary.LittleEndian.Uint64(data[32:40]),
		Method:           format.Method(data[40]),
		Flags:            data[41],
	}
	if !e.Method.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown compression method %d", errs.ErrInvalidStructure, data[40])
	}

	pathLen := binary.LittleEndian.Uint16(data[42:44])
	if int(pathLen) > format.MaxPathLength {
		return Entry{}, fmt.Errorf("%w: central directory path length %d exceeds %d-byte limit", errs.ErrInvalidStructure, pathLen, format.MaxPathLength)
	}
	e.Path = string(data[44 : 44+int(pathLen)])
	// data[300:320] reserved.

	return e, nil
}
