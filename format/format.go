// Package format defines the on-disk constants, sizes, and enumerations for
// the .eng archive container: the magic number, fixed record sizes, and the
// compression-method and encryption-mode value sets. Nothing in this package
// performs I/O; it is the vocabulary the archive package parses and emits.
package format

import "fmt"

// Magic is the 8-byte signature at offset 0 of every archive. It follows the
// PNG pattern: a non-ASCII leading byte plus CR/LF/EOF/LF to detect 7-bit
// transfers and line-ending mangling.
var Magic = [8]byte{0x89, 'E', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// LocalSignature is the 4-byte signature leading every local entry header.
var LocalSignature = [4]byte{'L', 'O', 'C', 'A'}

// CentralSignature is the 4-byte signature leading every central directory
// entry.
var CentralSignature = [4]byte{'C', 'E', 'N', 'T'}

// EndSignature is the 4-byte signature leading the end record.
var EndSignature = [4]byte{'E', 'N', 'D', 'R'}

// Fixed sizes, in bytes, of the container's anchor structures.
const (
	HeaderSize        = 64
	CentralEntrySize  = 320
	EndRecordSize     = 64
	MaxPathLength     = 255
	centralPathBufLen = 256
)

// Current format version written by this implementation. Readers reject any
// archive whose version_major exceeds this.
const (
	VersionMajor = 1
	VersionMinor = 0
)

// MinCompressionSize is the entry-size threshold below which automatic
// selection always stores an entry uncompressed.
const MinCompressionSize = 4096

// FrameSize is the size, in input bytes, of one chunk in framed compression
// mode. Bounds memory during read of multi-gigabyte entries.
const FrameSize = 65536

// FramedModeThreshold is the uncompressed_size at or above which the writer
// switches an Lz4/Zstd entry to framed mode.
const FramedModeThreshold = 52_428_800 // 50 MiB

// Method identifies an entry's compression algorithm.
type Method uint8

const (
	MethodNone Method = 0
	MethodLz4  Method = 1
	MethodZstd Method = 2
	// methodDeflate (3) is reserved but unsupported; readers reject it.
	methodDeflate Method = 3
)

// Valid reports whether m is one of the methods this implementation
// supports reading and writing (None, Lz4, Zstd). Deflate (3) and any value
// above it are invalid.
func (m Method) Valid() bool {
	return m == MethodNone || m == MethodLz4 || m == MethodZstd
}

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "None"
	case MethodLz4:
		return "Lz4"
	case MethodZstd:
		return "Zstd"
	case methodDeflate:
		return "Deflate(reserved)"
	default:
		return fmt.Sprintf("Method(%d)", uint8(m))
	}
}

// EncryptionMode identifies the scope an archive's AEAD encryption applies
// to, encoded in header flags bits [0..=1].
type EncryptionMode uint8

const (
	// EncryptionNone means no part of the archive is encrypted.
	EncryptionNone EncryptionMode = 0b00
	// EncryptionArchive means the entire body (everything after the
	// header, before the end record) is encrypted as one AEAD message.
	EncryptionArchive EncryptionMode = 0b01
	// EncryptionPerEntry means each entry's stored payload is
	// independently AEAD-encrypted; the central directory and LOCA
	// headers stay in plaintext.
	EncryptionPerEntry EncryptionMode = 0b10
	// encryptionReserved (0b11) is undefined; EncryptionModeFromFlags
	// maps it to EncryptionNone for forward compatibility, but callers
	// must never attempt to decrypt with it.
	encryptionReserved EncryptionMode = 0b11
)

// EncryptionModeFromFlags extracts the encryption mode from a header's flags
// field. The reserved bit pattern 0b11 is treated as EncryptionNone for
// forward compatibility; it must never be used to decrypt.
func EncryptionModeFromFlags(flags uint32) EncryptionMode {
	switch EncryptionMode(flags & 0b11) {
	case EncryptionArchive:
		return EncryptionArchive
	case EncryptionPerEntry:
		return EncryptionPerEntry
	default:
		return EncryptionNone
	}
}

// Flags folds the encryption mode into a header flags value, leaving higher
// bits untouched.
func (m EncryptionMode) Flags(existing uint32) uint32 {
	return (existing &^ 0b11) | uint32(m&0b11)
}

func (m EncryptionMode) String() string {
	switch m {
	case EncryptionNone:
		return "None"
	case EncryptionArchive:
		return "Archive"
	case EncryptionPerEntry:
		return "PerEntry"
	default:
		return "Reserved"
	}
}
