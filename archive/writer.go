package archive

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/colinmarc/engarc/compress"
	"github.com/colinmarc/engarc/crc"
	"github.com/colinmarc/engarc/errs"
	"github.com/colinmarc/engarc/format"
	"github.com/colinmarc/engarc/internal/options"
	"github.com/colinmarc/engarc/seal"
)

// WriterOption configures a Writer at construction time.
type WriterOption = options.Option[*Writer]

// WithCompressionRule overrides the automatic compression-method selection
// rule. The default is CompressionRuleV1.
func WithCompressionRule(rule CompressionRule) WriterOption {
	return options.NoError[*Writer](func(w *Writer) {
		w.rule = rule
	})
}

// WithLogger attaches a structured logger the Writer uses for debug-level
// visibility into expensive operations (finalize, archive-body sealing,
// framed compression of large entries). The default is slog.Default().
func WithLogger(logger *slog.Logger) WriterOption {
	return options.NoError[*Writer](func(w *Writer) {
		w.logger = logger
	})
}

// WithArchiveEncryption enables whole-archive encryption: everything from
// the end of the header to the start of the end record is sealed as one
// AES-256-GCM message at Finalize. Mutually exclusive with
// WithPerEntryEncryption.
func WithArchiveEncryption(key seal.Key) WriterOption {
	return options.New[*Writer](func(w *Writer) error {
		if w.encMode != format.EncryptionNone {
			return errs.ErrInvalidEncryptionMode
		}
		w.encMode = format.EncryptionArchive
		w.encKey = key
		return nil
	})
}

// WithPerEntryEncryption enables per-entry encryption: each entry's stored
// payload is independently sealed before it is written, while the central
// directory and LOCA headers stay in plaintext. Mutually exclusive with
// WithArchiveEncryption.
func WithPerEntryEncryption(key seal.Key) WriterOption {
	return options.New[*Writer](func(w *Writer) error {
		if w.encMode != format.EncryptionNone {
			return errs.ErrInvalidEncryptionMode
		}
		w.encMode = format.EncryptionPerEntry
		w.encKey = key
		return nil
	})
}

// pendingEntry accumulates one entry's central directory record while the
// body is being streamed out; Finalize serializes all of them back to back.
type pendingEntry struct {
	entry Entry
}

// Writer builds a new archive by accepting entries one at a time and
// writing them to the underlying file as they arrive, then appending the
// central directory and end record on Finalize. A Writer is not safe for
// concurrent use and must not be reused after Finalize.
type Writer struct {
	f   *os.File
	buf *bufio.Writer

	rule    CompressionRule
	encMode format.EncryptionMode
	encKey  seal.Key
	logger  *slog.Logger

	offset    uint64 // next write offset, relative to the start of the file
	entries   []pendingEntry
	finalized bool
}

// Create opens path for writing and returns a Writer positioned to accept
// entries. The header is written immediately with placeholder central
// directory fields; Finalize patches them once the layout is known.
func Create(path string, opts ...WriterOption) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		f:      f,
		buf:    bufio.NewWriterSize(f, 64*1024),
		rule:   CompressionRuleV1,
		logger: slog.Default(),
		offset: format.HeaderSize,
	}
	if err := options.Apply(w, opts...); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := w.buf.Write(newHeader().Bytes()); err != nil {
		f.Close()
		return nil, err
	}

	return w, nil
}

// selectMethod applies the Writer's rule, but never compresses an entry
// smaller than format.MinCompressionSize.
func (w *Writer) selectMethod(path string, size uint64) format.Method {
	if size < format.MinCompressionSize {
		return format.MethodNone
	}
	return w.rule(path, size)
}

// AddEntry compresses, optionally encrypts, and appends data to the archive
// under path, selecting a compression method automatically.
func (w *Writer) AddEntry(path string, data []byte) error {
	return w.AddEntryWith(path, data, w.selectMethod(path, uint64(len(data))))
}

// AddEntryWith is AddEntry with an explicit compression method, bypassing
// automatic selection.
func (w *Writer) AddEntryWith(path string, data []byte, method format.Method) error {
	if w.finalized {
		return errs.ErrWriterFinalized
	}

	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}

	originalCRC := crc.Checksum(data)

	var stored []byte
	if method == format.MethodNone {
		stored = data
	} else if uint64(len(data)) >= format.FramedModeThreshold {
		w.logger.Debug("compressing entry in framed mode",
			"path", normalized, "method", method.String(), "uncompressed_size", len(data))
		stored, err = compress.CompressFramed(data, method)
		if err != nil {
			return err
		}
	} else {
		codec, err := compress.CreateCodec(method, normalized)
		if err != nil {
			return err
		}
		stored, err = codec.Compress(data)
		if err != nil {
			return err
		}
		// Effective-method rule (regular mode only): if compression didn't
		// strictly shrink the input, store it raw and record None instead.
		if len(stored) >= len(data) {
			stored = data
			method = format.MethodNone
		}
	}

	var flags uint8
	if w.encMode == format.EncryptionPerEntry {
		stored, err = seal.Seal(w.encKey, stored)
		if err != nil {
			return err
		}
		flags |= entryFlagEncrypted
	}

	header := LocalEntryHeader{
		UncompressedSize: uint64(len(data)),
		CompressedSize:   uint64(len(stored)),
		CRC32:            originalCRC,
		ModifiedTime:     uint64(time.Now().Unix()),
		Method:           method,
		Flags:            flags,
		Path:             normalized,
	}

	headerBytes, err := header.Bytes()
	if err != nil {
		return err
	}

	dataOffset := w.offset
	if _, err := w.buf.Write(headerBytes); err != nil {
		return err
	}
	if _, err := w.buf.Write(stored); err != nil {
		return err
	}
	w.offset += uint64(len(headerBytes)) + uint64(len(stored))

	w.entries = append(w.entries, pendingEntry{entry: Entry{
		Path:             normalized,
		DataOffset:       dataOffset,
		UncompressedSize: header.UncompressedSize,
		CompressedSize:   header.CompressedSize,
		CRC32:            header.CRC32,
		ModifiedTime:     header.ModifiedTime,
		Method:           method,
		Flags:            flags,
	}})

	return nil
}

// AddEntryFromReader reads exactly size bytes from r and adds them as path,
// using automatic compression selection. Unlike AddEntry it avoids holding
// a second copy of the caller's own buffer, at the cost of requiring size
// up front; it does not support entries of unknown length.
func (w *Writer) AddEntryFromReader(path string, r io.Reader, size uint64) error {
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	return w.AddEntry(path, data)
}

// AddManifest writes manifestJSON under the reserved "manifest.json" path,
// always uncompressed regardless of the Writer's compression rule. It is
// not exempt from encryption: under either encryption mode it is sealed
// like every other entry, and reading it back needs the archive's key.
func (w *Writer) AddManifest(manifestJSON []byte) error {
	return w.AddEntryWith(manifestEntryPath, manifestJSON, format.MethodNone)
}

// entryFlagEncrypted marks an entry as individually sealed under per-entry
// encryption mode.
const entryFlagEncrypted uint8 = 0x01

// manifestEntryPath is the reserved path readers check for a signed
// manifest.
const manifestEntryPath = "manifest.json"

// Finalize writes the central directory, optionally seals the body under
// archive-wide encryption, patches the header's central directory fields
// and encryption mode, writes the end record, and closes the underlying
// file. Finalize must be called exactly once; calling any other Writer
// method afterward returns ErrWriterFinalized.
//
// cd_offset and cd_size recorded in the header are always the plaintext,
// pre-encryption positions (payload-relative plus 64, i.e. file-equivalent
// offsets into the region a reader decrypts in archive mode); see §4.5.
func (w *Writer) Finalize() error {
	if w.finalized {
		return errs.ErrWriterFinalized
	}
	w.finalized = true
	defer w.f.Close()

	start := time.Now()
	w.logger.Debug("finalizing archive", "entry_count", len(w.entries))

	cdOffset := w.offset
	var cdSize uint64
	for _, pe := range w.entries {
		b, err := pe.entry.Bytes()
		if err != nil {
			return err
		}
		if _, err := w.buf.Write(b); err != nil {
			return err
		}
		cdSize += uint64(len(b))
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}

	if w.encMode == format.EncryptionArchive {
		if err := w.sealBody(); err != nil {
			return err
		}
	}

	entryCount := uint32(len(w.entries))
	if err := w.patchHeader(cdOffset, cdSize, entryCount); err != nil {
		return err
	}

	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	end := EndRecord{
		VersionMajor:           format.VersionMajor,
		VersionMinor:           format.VersionMinor,
		CentralDirectoryOffset: cdOffset,
		CentralDirectorySize:   cdSize,
		EntryCount:             entryCount,
	}
	if _, err := w.f.Write(end.Bytes()); err != nil {
		return err
	}

	w.logger.Debug("archive finalized", "entry_count", entryCount, "cd_size", cdSize, "elapsed", time.Since(start))
	return nil
}

// sealBody reads back every byte written so far after the header (i.e. the
// entry payloads and the just-written central directory, with no end
// record yet appended), encrypts it as one AES-256-GCM message, and
// rewrites that region in place as nonce ‖ ciphertext ‖ tag.
func (w *Writer) sealBody() error {
	if _, err := w.f.Seek(format.HeaderSize, io.SeekStart); err != nil {
		return err
	}
	plain, err := io.ReadAll(w.f)
	if err != nil {
		return err
	}

	w.logger.Debug("sealing archive body under archive-wide encryption", "body_size", len(plain))

	sealed, err := seal.Seal(w.encKey, plain)
	if err != nil {
		return err
	}

	if err := w.f.Truncate(format.HeaderSize); err != nil {
		return err
	}
	if _, err := w.f.Seek(format.HeaderSize, io.SeekStart); err != nil {
		return err
	}
	_, err = w.f.Write(sealed)
	return err
}

// patchHeader rewrites the 64-byte header in place with the final central
// directory location, entry count, and encryption mode.
func (w *Writer) patchHeader(cdOffset, cdSize uint64, entryCount uint32) error {
	h := newHeader()
	h.EntryCount = entryCount
	h.CentralDirectoryOffset = cdOffset
	h.CentralDirectorySize = cdSize
	h.SetEncryptionMode(w.encMode)

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := w.f.Write(h.Bytes())
	return err
}
