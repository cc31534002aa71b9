// Package vfs adapts an archive reader to external database engines that
// expect a plain file on disk. The core reader exposes no mmap or
// partial-read API; this package extracts one entry's decompressed,
// decrypted, CRC-verified bytes into a uniquely-named temporary file and
// hands back a handle for the caller to open read-only. It does not link
// any SQL engine: wiring a specific driver (e.g. SQLite) to the extracted
// file is the caller's responsibility, matching the reserved-interface
// framing of the VFS adapter. Adapted from the reference Rust
// implementation's vfs.rs VfsReader, minus its rusqlite dependency.
package vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EntryReader is the subset of archive.Reader the Extractor needs: *archive.
// Reader satisfies it directly, as does any fake used in tests.
type EntryReader interface {
	ReadEntry(path string) ([]byte, error)
	Contains(path string) bool
}

// Extractor extracts entries from an archive reader to temporary files. The
// zero value is not usable; construct with NewExtractor.
type Extractor struct {
	reader  EntryReader
	dir     string
	ownsDir bool
}

// NewExtractor creates an Extractor backed by reader. If dir is empty, a
// fresh temporary directory is created lazily on first use and removed by
// Close; if dir is non-empty, the caller owns its lifecycle.
func NewExtractor(reader EntryReader, dir string) *Extractor {
	return &Extractor{reader: reader, dir: dir}
}

// ListDatabases filters paths (for example the Path fields of
// archive.Reader.ListEntries, or the result of archive.Reader.ListByPrefix)
// down to those whose extension suggests a SQLite database file, the same
// convenience VfsReader.list_databases offered in the reference
// implementation.
func ListDatabases(paths []string) []string {
	var out []string
	for _, path := range paths {
		lower := strings.ToLower(path)
		if strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".sqlite3") {
			out = append(out, path)
		}
	}
	return out
}

// Extract reads path from the archive and writes it to a uniquely-named
// file inside the extractor's temporary directory, returning the file's
// path and a cleanup func that removes it. The caller opens the returned
// path with whatever external engine it needs; this package never opens it
// itself.
func (e *Extractor) Extract(path string) (extractedPath string, cleanup func() error, err error) {
	if !e.reader.Contains(path) {
		return "", nil, fmt.Errorf("vfs: entry not found: %s", path)
	}

	if e.dir == "" {
		dir, err := os.MkdirTemp("", "engarc-vfs-*")
		if err != nil {
			return "", nil, err
		}
		e.dir = dir
		e.ownsDir = true
	}

	data, err := e.reader.ReadEntry(path)
	if err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp(e.dir, sanitizeBaseName(path)+"-*"+filepath.Ext(path))
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", nil, err
	}

	name := f.Name()
	return name, func() error { return os.Remove(name) }, nil
}

// Close removes the extractor's temporary directory if NewExtractor was
// given an empty dir; it is a no-op otherwise.
func (e *Extractor) Close() error {
	if !e.ownsDir || e.dir == "" {
		return nil
	}
	return os.RemoveAll(e.dir)
}

// sanitizeBaseName strips directory components and replaces characters
// that are unsafe in a temp-file name pattern.
func sanitizeBaseName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
