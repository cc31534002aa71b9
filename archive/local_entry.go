package archive

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/colinmarc/engarc/errs"
	"github.com/colinmarc/engarc/format"
)

// LocalEntryHeader immediately precedes an entry's payload bytes in the
// archive body. It duplicates the fields of the matching central directory
// record so a reader can validate an entry without consulting the central
// directory, and is cross-checked against it anyway.
type LocalEntryHeader struct {
	UncompressedSize uint64
	CompressedSize   uint64
	CRC32            uint32
	ModifiedTime     uint64
	Method           format.Method
	Flags            uint8
	Path             string
}

// Bytes serializes h, including the "LOCA" signature and the path's null
// terminator.
func (h LocalEntryHeader) Bytes() ([]byte, error) {
	pathBytes := []byte(h.Path)
	if len(pathBytes) > 0xFFFF {
		return nil, fmt.Errorf("%w: local entry path length %d exceeds uint16", errs.ErrInvalidStructure, len(pathBytes))
	}

	buf := make([]byte, 4+8+8+4+8+1+1+2+4+len(pathBytes)+1)
	pos := 0
	copy(buf[pos:], format.LocalSignature[:])
	pos += 4
	binary.LittleEndian.PutUint64(buf[pos:], h.UncompressedSize)
	pos += 8
	binary.LittleEndian.PutUint64(buf[pos:], h.CompressedSize)
	pos += 8
	binary.LittleEndian.PutUint32(buf[pos:], h.CRC32)
	pos += 4
	binary.LittleEndian.PutUint64(buf[pos:], h.ModifiedTime)
	pos += 8
	buf[pos] = byte(h.Method)
	pos++
	buf[pos] = h.Flags
	pos++
	binary.LittleEndian.PutUint16(buf[pos:], uint16(len(pathBytes)))
	pos += 2
	pos += 4 // reserved
	copy(buf[pos:], pathBytes)
	pos += len(pathBytes)
	buf[pos] = 0x00 // null terminator

	return buf, nil
}

// ReadLocalEntryHeader reads and parses one LocalEntryHeader from r,
// validating the "LOCA" signature and null terminator.
func ReadLocalEntryHeader(r io.Reader) (LocalEntryHeader, error) {
	var fixed [4 + 8 + 8 + 4 + 8 + 1 + 1 + 2 + 4]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return LocalEntryHeader{}, fmt.Errorf("%w: reading local entry header: %w", errs.ErrInvalidStructure, err)
	}

	if [4]byte(fixed[0:4]) != format.LocalSignature {
		return LocalEntryHeader{}, fmt.Errorf("%w: bad LOCA signature", errs.ErrInvalidStructure)
	}

	h := LocalEntryHeader{
		UncompressedSize: binary.LittleEndian.Uint64(fixed[4:12]),
		CompressedSize:   binary.LittleEndian.Uint64(fixed[12:20]),
		CRC32:            binary.LittleEndian.Uint32(fixed[20:24]),
		ModifiedTime:     binary.LittleEndian.Uint64(fixed[24:32]),
		Method:           format.Method(fixed[32]),
		Flags:            fixed[33],
	}
	pathLen := binary.LittleEndian.Uint16(fixed[34:36])
	// fixed[36:40] reserved

	pathBuf := make([]byte, int(pathLen)+1) // +1 for null terminator
	if _, err := io.ReadFull(r, pathBuf); err != nil {
		return LocalEntryHeader{}, fmt.Errorf("%w: reading local entry path: %w", errs.ErrInvalidStructure, err)
	}
	if pathBuf[pathLen] != 0x00 {
		return LocalEntryHeader{}, fmt.Errorf("%w: local entry header missing null terminator", errs.ErrInvalidStructure)
	}
	h.Path = string(pathBuf[:pathLen])

	return h, nil
}
