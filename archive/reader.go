package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/colinmarc/engarc/compress"
	"github.com/colinmarc/engarc/crc"
	"github.com/colinmarc/engarc/errs"
	"github.com/colinmarc/engarc/format"
	"github.com/colinmarc/engarc/seal"
)

// readerState tracks a Reader's progress through {Opened, Initialized}.
// ReadEntry and GetEntry require Initialized; before it, EntryCount,
// Contains, ListEntries, and ListByPrefix report an empty archive.
type readerState uint8

const (
	stateOpened readerState = iota
	stateInitialized
)

// Reader provides random access to an archive's entries. Open a Reader,
// optionally supply a decryption key, call Initialize, then use the
// metadata accessors and ReadEntry. A Reader is not safe for concurrent
// use.
type Reader struct {
	f    *os.File
	size int64

	header Header
	key    *seal.Key
	logger *slog.Logger

	state readerState

	// plaintext holds the decrypted body in archive-encryption mode, preceded
	// by format.HeaderSize placeholder bytes, so the file-equivalent offsets
	// recorded in the header and central directory index into it directly.
	plaintext []byte

	entries map[string]Entry
	order   []string
}

// Open reads and validates the file's header, returning a Reader in the
// Opened state. It does not yet decrypt the body or build the entry index;
// call Initialize for that.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < format.HeaderSize {
		f.Close()
		return nil, fmt.Errorf("%w: file shorter than header", errs.ErrInvalidStructure)
	}

	headerBytes := make([]byte, format.HeaderSize)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		f.Close()
		return nil, err
	}

	header, err := ParseHeader(headerBytes)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := header.ValidateVersion(); err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{
		f:      f,
		size:   info.Size(),
		header: header,
		logger: slog.Default(),
		state:  stateOpened,
	}, nil
}

// Header returns the parsed, validated archive header.
func (r *Reader) Header() Header {
	return r.header
}

// EncryptionMode returns the archive's declared encryption scope.
func (r *Reader) EncryptionMode() format.EncryptionMode {
	return r.header.EncryptionMode()
}

// WithDecryptionKey supplies the key Initialize needs for an encrypted
// archive. It is a no-op setter; it does not itself attempt decryption.
func (r *Reader) WithDecryptionKey(key seal.Key) *Reader {
	r.key = &key
	return r
}

// WithLogger attaches a structured logger the Reader uses for debug-level
// visibility into expensive operations (archive-body decryption, framed
// decompression). The default is slog.Default(). It is a builder-style
// setter like WithDecryptionKey.
func (r *Reader) WithLogger(logger *slog.Logger) *Reader {
	r.logger = logger
	return r
}

// Initialize validates the end record (when the archive is not
// archive-encrypted), decrypts the body (when it is), and builds the entry
// index from the central directory. It must be called exactly once before
// any other Reader method except Header/EncryptionMode/WithDecryptionKey.
func (r *Reader) Initialize() error {
	mode := r.header.EncryptionMode()
	if mode != format.EncryptionNone && r.key == nil {
		return errs.ErrMissingDecryptionKey
	}

	var cdSource io.ReaderAt

	switch mode {
	case format.EncryptionNone, format.EncryptionPerEntry:
		if err := r.validateEndRecord(); err != nil {
			return err
		}
		cdSource = r.f
	case format.EncryptionArchive:
		if err := r.decryptBody(); err != nil {
			return err
		}
		cdSource = bytes.NewReader(r.plaintext)
	}

	// header.CentralDirectoryOffset is always file-equivalent (payload-
	// relative plus format.HeaderSize), and r.plaintext is padded with
	// format.HeaderSize leading bytes to match, so buildIndex can use the
	// same offset arithmetic regardless of encryption mode.
	if err := r.buildIndex(cdSource); err != nil {
		return err
	}

	r.state = stateInitialized
	return nil
}

func (r *Reader) validateEndRecord() error {
	if _, err := r.f.Seek(r.size-format.EndRecordSize, io.SeekStart); err != nil {
		return err
	}
	b := make([]byte, format.EndRecordSize)
	if _, err := io.ReadFull(r.f, b); err != nil {
		return err
	}
	end, err := ParseEndRecord(b)
	if err != nil {
		return err
	}
	return end.ValidateAgainstHeader(r.header)
}

// decryptBody decrypts bytes [76, file_size-64) using the nonce stored at
// [64, 76), and stores the result so it can be indexed as if it were file
// bytes starting at offset 64.
func (r *Reader) decryptBody() error {
	start := time.Now()
	if _, err := r.f.Seek(format.HeaderSize, io.SeekStart); err != nil {
		return err
	}
	sealedLen := r.size - format.HeaderSize - format.EndRecordSize
	if sealedLen < int64(seal.NonceSize+seal.TagSize) {
		return fmt.Errorf("%w: encrypted body shorter than nonce+tag", errs.ErrDecryptionFailed)
	}
	sealed := make([]byte, sealedLen)
	if _, err := io.ReadFull(r.f, sealed); err != nil {
		return err
	}

	plain, err := seal.Open(*r.key, sealed)
	if err != nil {
		return err
	}

	// Reconstruct the payload-relative-plus-64 addressing scheme: prepend
	// format.HeaderSize placeholder bytes so plaintext[off] is valid for
	// off >= format.HeaderSize, matching header-recorded offsets.
	r.plaintext = make([]byte, format.HeaderSize+len(plain))
	copy(r.plaintext[format.HeaderSize:], plain)

	r.logger.Debug("decrypted archive-wide encrypted body", "body_size", len(plain), "elapsed", time.Since(start))
	return nil
}

func (r *Reader) buildIndex(src io.ReaderAt) error {
	r.entries = make(map[string]Entry, r.header.EntryCount)
	r.order = make([]string, 0, r.header.EntryCount)

	buf := make([]byte, format.CentralEntrySize)
	for i := uint32(0); i < r.header.EntryCount; i++ {
		off := int64(r.header.CentralDirectoryOffset) + int64(i)*format.CentralEntrySize
		if _, err := src.ReadAt(buf, off); err != nil {
			return fmt.Errorf("%w: reading central directory entry %d: %w", errs.ErrInvalidStructure, i, err)
		}
		entry, err := ParseEntry(buf)
		if err != nil {
			return err
		}
		r.entries[entry.Path] = entry
		r.order = append(r.order, entry.Path)
	}

	return nil
}

func (r *Reader) requireInitialized() error {
	if r.state != stateInitialized {
		return errs.ErrReaderNotInitialized
	}
	return nil
}

// EntryCount returns the number of entries in the archive.
func (r *Reader) EntryCount() int {
	return len(r.entries)
}

// Contains reports whether path (after normalization) is present.
func (r *Reader) Contains(path string) bool {
	normalized, err := normalizePath(path)
	if err != nil {
		return false
	}
	_, ok := r.entries[normalized]
	return ok
}

// GetEntry returns the central-directory metadata for path.
func (r *Reader) GetEntry(path string) (Entry, error) {
	if err := r.requireInitialized(); err != nil {
		return Entry{}, err
	}

	if e, ok := r.entries[path]; ok {
		return e, nil
	}
	normalized, err := normalizePath(path)
	if err == nil {
		if e, ok := r.entries[normalized]; ok {
			return e, nil
		}
	}

	return Entry{}, fmt.Errorf("%w: %s", errs.ErrFileNotFound, path)
}

// ListEntries returns every entry's metadata in insertion (write) order.
func (r *Reader) ListEntries() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, path := range r.order {
		out = append(out, r.entries[path])
	}
	return out
}

// ListByPrefix returns the paths starting with prefix, in insertion order.
func (r *Reader) ListByPrefix(prefix string) []string {
	out := make([]string, 0)
	for _, path := range r.order {
		if strings.HasPrefix(path, prefix) {
			out = append(out, path)
		}
	}
	return out
}

// readerAt returns the io.ReaderAt to use for file-or-plaintext-relative
// positions, matching whichever source Initialize indexed the central
// directory against.
func (r *Reader) readerAt() io.ReaderAt {
	if r.header.EncryptionMode() == format.EncryptionArchive {
		return bytes.NewReader(r.plaintext)
	}
	return r.f
}

// ReadEntry returns the decrypted, decompressed, CRC-verified bytes of
// path.
func (r *Reader) ReadEntry(path string) ([]byte, error) {
	if err := r.requireInitialized(); err != nil {
		return nil, err
	}

	entry, err := r.GetEntry(path)
	if err != nil {
		return nil, err
	}

	src := r.readerAt()

	const fixedLen = 4 + 8 + 8 + 4 + 8 + 1 + 1 + 2 + 4
	fixed := make([]byte, fixedLen)
	if _, err := src.ReadAt(fixed, int64(entry.DataOffset)); err != nil {
		return nil, fmt.Errorf("%w: reading local entry header: %w", errs.ErrInvalidStructure, err)
	}
	pathLen := binary.LittleEndian.Uint16(fixed[34:36])

	pathBuf := make([]byte, int(pathLen)+1)
	if _, err := src.ReadAt(pathBuf, int64(entry.DataOffset)+fixedLen); err != nil {
		return nil, fmt.Errorf("%w: reading local entry path: %w", errs.ErrInvalidStructure, err)
	}

	local, err := ReadLocalEntryHeader(bytes.NewReader(append(fixed, pathBuf...)))
	if err != nil {
		return nil, err
	}

	if err := crossValidate(entry, local); err != nil {
		return nil, err
	}

	localBytes, err := local.Bytes()
	if err != nil {
		return nil, err
	}
	payloadOffset := int64(entry.DataOffset) + int64(len(localBytes))

	payload := make([]byte, entry.CompressedSize)
	if _, err := src.ReadAt(payload, payloadOffset); err != nil {
		return nil, fmt.Errorf("%w: reading entry payload: %w", errs.ErrInvalidStructure, err)
	}

	if r.header.EncryptionMode() == format.EncryptionPerEntry {
		payload, err = seal.Open(*r.key, payload)
		if err != nil {
			return nil, err
		}
	}

	var plain []byte
	switch {
	case entry.Method == format.MethodNone:
		plain = payload
	case entry.UncompressedSize >= format.FramedModeThreshold:
		r.logger.Debug("decompressing entry in framed mode",
			"path", entry.Path, "method", entry.Method.String(), "uncompressed_size", entry.UncompressedSize)
		plain, err = compress.DecompressFramed(payload, entry.Method, entry.UncompressedSize)
		if err != nil {
			return nil, err
		}
	default:
		codec, err := compress.CreateCodec(entry.Method, entry.Path)
		if err != nil {
			return nil, err
		}
		plain, err = codec.Decompress(payload)
		if err != nil {
			return nil, err
		}
	}

	if !crc.Verify(plain, entry.CRC32) {
		return nil, errs.ErrCrcMismatch
	}

	return plain, nil
}

// crossValidate checks that a LOCA header agrees with its central
// directory record on path, sizes, CRC-32, and method.
func crossValidate(entry Entry, local LocalEntryHeader) error {
	if local.Path != entry.Path ||
		local.UncompressedSize != entry.UncompressedSize ||
		local.CompressedSize != entry.CompressedSize ||
		local.CRC32 != entry.CRC32 ||
		local.Method != entry.Method {
		return fmt.Errorf("%w: local entry header does not match central directory record for %q", errs.ErrInvalidStructure, entry.Path)
	}
	return nil
}

// ReadManifest returns the raw bytes of the reserved "manifest.json" entry,
// or (nil, false) if the archive has none.
func (r *Reader) ReadManifest() ([]byte, bool, error) {
	if !r.Contains(manifestEntryPath) {
		return nil, false, nil
	}
	b, err := r.ReadEntry(manifestEntryPath)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Close releases the underlying file descriptor.
func (r *Reader) Close() error {
	return r.f.Close()
}
