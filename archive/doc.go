// Package archive implements the .eng container format: a single-file,
// read-optimized package of named byte streams with per-stream compression,
// CRC-32 integrity, optional AES-256-GCM encryption, and a reserved slot for
// a signable JSON manifest.
//
// Writer builds an archive by accepting entries one at a time and streaming
// them to disk; Finalize seals the layout with a central directory and end
// record. Reader opens an existing archive, validates its structure, and
// serves entries by path with full integrity verification on every read.
package archive
