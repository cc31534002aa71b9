// Package errs defines the sentinel errors returned by the archive, compress,
// seal, and manifest packages. Call sites wrap these with fmt.Errorf("%w: ...")
// to add context; callers should compare with errors.Is against the sentinels
// here rather than matching on message text.
package errs

import "errors"

var (
	// ErrInvalidMagic is returned when the first 8 bytes of a file do not
	// match the archive magic number.
	ErrInvalidMagic = errors.New("engarc: invalid magic number")

	// ErrUnsupportedVersion is returned when a header's version_major is
	// greater than the version this implementation supports.
	ErrUnsupportedVersion = errors.New("engarc: unsupported archive version")

	// ErrInvalidStructure is returned for any structural rule violation:
	// bad CENT/LOCA/ENDR signature, missing null terminator, LOCA/CD
	// mismatch, unknown compression method, malformed manifest JSON, or a
	// header/end-record count mismatch.
	ErrInvalidStructure = errors.New("engarc: invalid archive structure")

	// ErrFileNotFound is returned when a requested path is absent from the
	// central directory.
	ErrFileNotFound = errors.New("engarc: entry not found")

	// ErrCrcMismatch is returned when the CRC-32 of decompressed, decrypted
	// entry bytes does not match the stored CRC-32.
	ErrCrcMismatch = errors.New("engarc: CRC-32 mismatch")

	// ErrPathTooLong is returned at write time when a path exceeds 255
	// bytes.
	ErrPathTooLong = errors.New("engarc: path exceeds 255 bytes")

	// ErrInvalidPath is returned when a path is empty or contains a NUL
	// byte.
	ErrInvalidPath = errors.New("engarc: invalid entry path")

	// ErrCompressionFailed is returned when a compressor reports an error.
	ErrCompressionFailed = errors.New("engarc: compression failed")

	// ErrDecompressionFailed is returned when a decompressor reports an
	// error, or a framed payload's decompressed size does not match the
	// declared uncompressed size.
	ErrDecompressionFailed = errors.New("engarc: decompression failed")

	// ErrEncryptionFailed is returned when an AEAD seal operation fails.
	ErrEncryptionFailed = errors.New("engarc: encryption failed")

	// ErrDecryptionFailed is returned when an AEAD open operation fails:
	// tag mismatch or short input. The reserved encryption-mode value is
	// read as no encryption (see format.EncryptionModeFromFlags), not as
	// this error.
	ErrDecryptionFailed = errors.New("engarc: decryption failed")

	// ErrMissingDecryptionKey is returned when an encrypted archive is
	// opened without a key.
	ErrMissingDecryptionKey = errors.New("engarc: archive is encrypted but no key was supplied")

	// ErrInvalidEncryptionMode is returned when a writer's encryption mode
	// is configured inconsistently (both modes enabled), or when an
	// encryption key has the wrong length.
	ErrInvalidEncryptionMode = errors.New("engarc: invalid encryption mode configuration")

	// ErrReaderNotInitialized is returned when ReadEntry or GetEntry is
	// called on a Reader that has not completed Initialize.
	ErrReaderNotInitialized = errors.New("engarc: reader is not initialized")

	// ErrWriterFinalized is returned when AddEntry or Finalize is called
	// on a Writer that has already been finalized.
	ErrWriterFinalized = errors.New("engarc: writer has already been finalized")
)
