package archive_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinmarc/engarc/archive"
	"github.com/colinmarc/engarc/errs"
	"github.com/colinmarc/engarc/format"
	"github.com/colinmarc/engarc/seal"
)

func tempArchivePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.eng")
}

func TestWriterReaderRoundTrip(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)

	require.NoError(t, w.AddEntry("readme.txt", []byte("hello, archive")))
	require.NoError(t, w.AddEntryWith("logo.png", []byte{0x89, 'P', 'N', 'G'}, format.MethodNone))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Initialize())
	assert.Equal(t, 2, r.EntryCount())
	assert.True(t, r.Contains("readme.txt"))

	got, err := r.ReadEntry("readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello, archive", string(got))

	got, err = r.ReadEntry("logo.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, got)
}

func TestForcedCompressionFallsBackToNoneWhenNotSmaller(t *testing.T) {
	path := tempArchivePath(t)

	// Small, high-entropy input: LZ4 output (length prefix + block) cannot
	// come in strictly smaller than the input, so the writer must fall back
	// to storing it raw under MethodNone.
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i * 97)
	}

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntryWith("random.bin", data, format.MethodLz4))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Initialize())

	entry, err := r.GetEntry("random.bin")
	require.NoError(t, err)
	assert.Equal(t, format.MethodNone, entry.Method)
	assert.Equal(t, entry.UncompressedSize, entry.CompressedSize)

	got, err := r.ReadEntry("random.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriterReaderRoundTripLargeCompressibleEntry(t *testing.T) {
	path := tempArchivePath(t)

	data := make([]byte, 200*1024)
	for i := range data {
		data[i] = byte(i % 17)
	}

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("blob.dat", data))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Initialize())

	got, err := r.ReadEntry("blob.dat")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	entry, err := r.GetEntry("blob.dat")
	require.NoError(t, err)
	assert.NotEqual(t, format.MethodNone, entry.Method)
}

func TestListByPrefixAndListEntries(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("assets/a.txt", []byte("a")))
	require.NoError(t, w.AddEntry("assets/b.txt", []byte("b")))
	require.NoError(t, w.AddEntry("config.json", []byte("{}")))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Initialize())

	assert.ElementsMatch(t, []string{"assets/a.txt", "assets/b.txt"}, r.ListByPrefix("assets/"))
	assert.Len(t, r.ListEntries(), 3)
}

func TestArchiveEncryptionRoundTrip(t *testing.T) {
	path := tempArchivePath(t)
	var key seal.Key
	for i := range key {
		key[i] = byte(i)
	}

	w, err := archive.Create(path, archive.WithArchiveEncryption(key))
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("secret.txt", []byte("classified payload")))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, format.EncryptionArchive, r.EncryptionMode())

	err = r.WithDecryptionKey(key).Initialize()
	require.NoError(t, err)

	got, err := r.ReadEntry("secret.txt")
	require.NoError(t, err)
	assert.Equal(t, "classified payload", string(got))
}

func TestArchiveEncryptionWrongKeyFails(t *testing.T) {
	path := tempArchivePath(t)
	var key, wrongKey seal.Key
	for i := range key {
		key[i] = byte(i)
		wrongKey[i] = byte(i + 1)
	}

	w, err := archive.Create(path, archive.WithArchiveEncryption(key))
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("secret.txt", []byte("classified payload")))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()

	err = r.WithDecryptionKey(wrongKey).Initialize()
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)
}

func TestArchiveMissingKeyFails(t *testing.T) {
	path := tempArchivePath(t)
	var key seal.Key
	key[0] = 1

	w, err := archive.Create(path, archive.WithArchiveEncryption(key))
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("secret.txt", []byte("classified payload")))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()

	err = r.Initialize()
	assert.ErrorIs(t, err, errs.ErrMissingDecryptionKey)
}

func TestPerEntryEncryptionRoundTrip(t *testing.T) {
	path := tempArchivePath(t)
	var key seal.Key
	key[0] = 7

	w, err := archive.Create(path, archive.WithPerEntryEncryption(key))
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("secret.txt", []byte("per-entry secret")))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.WithDecryptionKey(key).Initialize())

	got, err := r.ReadEntry("secret.txt")
	require.NoError(t, err)
	assert.Equal(t, "per-entry secret", string(got))
}

func TestReadEntryDetectsCorruption(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntryWith("data.bin", []byte("some bytes that are not compressed"), format.MethodNone))
	require.NoError(t, w.Finalize())

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	// Flip a byte inside the payload region. The payload starts after the
	// 64-byte header and the local entry header (40 fixed bytes plus the
	// 8-byte path "data.bin" and its null terminator), i.e. at offset 113.
	_, err = f.WriteAt([]byte{0xFF}, 120)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Initialize())

	_, err = r.ReadEntry("data.bin")
	assert.Error(t, err)
}

func TestReaderNotInitializedFailsFast(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("a.txt", []byte("a")))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadEntry("a.txt")
	assert.ErrorIs(t, err, errs.ErrReaderNotInitialized)
}

func TestFinalizeTwiceFails(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	assert.ErrorIs(t, w.Finalize(), errs.ErrWriterFinalized)
}

func TestAddEntryAfterFinalizeFails(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	assert.ErrorIs(t, w.AddEntry("late.txt", []byte("x")), errs.ErrWriterFinalized)
}

func TestManifestRoundTrip(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddManifest([]byte(`{"version":1}`)))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Initialize())

	manifest, present, err := r.ReadManifest()
	require.NoError(t, err)
	require.True(t, present)
	assert.JSONEq(t, `{"version":1}`, string(manifest))
}

func TestBackslashPathIsNormalizedOnWrite(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntry(`dir\file.txt`, []byte("nested")))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Initialize())

	entry, err := r.GetEntry("dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "dir/file.txt", entry.Path)

	got, err := r.ReadEntry("dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "nested", string(got))
}

func TestCorruptedLocalSignatureFailsWithInvalidStructure(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntryWith("first.bin", []byte("payload bytes"), format.MethodNone))
	require.NoError(t, w.Finalize())

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	// The first entry's LOCA header starts immediately after the 64-byte
	// archive header; flip its signature byte.
	_, err = f.WriteAt([]byte{'X'}, format.HeaderSize)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Initialize())

	_, err = r.ReadEntry("first.bin")
	assert.ErrorIs(t, err, errs.ErrInvalidStructure)
}

func TestTruncatedArchiveFailsInitialize(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("a.txt", []byte("hello")))
	require.NoError(t, w.Finalize())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-32))

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()

	err = r.Initialize()
	assert.Error(t, err)
}

func TestFramedModeRoundTripAtThreshold(t *testing.T) {
	path := tempArchivePath(t)

	data := make([]byte, format.FramedModeThreshold)
	for i := range data {
		data[i] = byte(i % 256)
	}

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntryWith("huge.bin", data, format.MethodLz4))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Initialize())

	entry, err := r.GetEntry("huge.bin")
	require.NoError(t, err)
	assert.Equal(t, format.MethodLz4, entry.Method)
	assert.Equal(t, uint64(len(data)), entry.UncompressedSize)

	got, err := r.ReadEntry("huge.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWithLoggerOptionDoesNotAffectRoundTrip(t *testing.T) {
	path := tempArchivePath(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w, err := archive.Create(path, archive.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("a.txt", []byte("hello")))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.WithLogger(logger).Initialize())

	got, err := r.ReadEntry("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestReadManifestAbsent(t *testing.T) {
	path := tempArchivePath(t)

	w, err := archive.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AddEntry("a.txt", []byte("a")))
	require.NoError(t, w.Finalize())

	r, err := archive.Open(path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Initialize())

	_, present, err := r.ReadManifest()
	require.NoError(t, err)
	assert.False(t, present)
}
