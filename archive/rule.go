package archive

import (
	"path/filepath"
	"strings"

	"github.com/colinmarc/engarc/format"
)

// CompressionRule selects a compression method for an entry given its
// normalized path and uncompressed size. Entries smaller than
// format.MinCompressionSize are never compressed regardless of what a rule
// returns; Writer enforces that separately.
type CompressionRule func(path string, size uint64) format.Method

// preCompressedExtensions already carry their own internal compression,
// where re-compressing rarely recovers enough size to be worth the CPU.
// Both CompressionRuleV1 and CompressionRuleZstdDefault agree on this set.
var preCompressedExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".mp3": {}, ".mp4": {}, ".zip": {}, ".gz": {}, ".bz2": {}, ".7z": {},
}

// textLikeExtensions compress well with Zstd's larger window and dictionary;
// both rules agree these always go to Zstd regardless of the rule's default
// for "everything else".
var textLikeExtensions = map[string]struct{}{
	".json": {}, ".txt": {}, ".xml": {}, ".html": {}, ".cml": {}, ".css": {},
	".js": {}, ".ts": {}, ".md": {}, ".csv": {}, ".toml": {},
}

// dbLikeExtensions is where the two source copies of this rule disagreed
// (§9 Open Question): one routed them to Zstd, the other to Lz4.
var dbLikeExtensions = map[string]struct{}{
	".db": {}, ".sqlite": {}, ".sqlite3": {}, ".wasm": {},
}

// CompressionRuleV1 is the default automatic-selection rule: already-
// compressed formats are stored raw, text-like formats always use Zstd, and
// this copy resolves the database/WebAssembly drift (§9 Open Question) and
// the otherwise-unclassified default both in favor of Lz4. See DESIGN.md.
func CompressionRuleV1(path string, _ uint64) format.Method {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case extIn(ext, preCompressedExtensions):
		return format.MethodNone
	case extIn(ext, textLikeExtensions):
		return format.MethodZstd
	case extIn(ext, dbLikeExtensions):
		return format.MethodLz4
	default:
		return format.MethodLz4
	}
}

// CompressionRuleZstdDefault is the alternate rule carried over from the
// source implementation's other compression-rule copy: the same
// already-compressed skip list and text-like Zstd routing, but Zstd for
// database/WebAssembly files and for the otherwise-unclassified default.
// Opt in via WithCompressionRule.
func CompressionRuleZstdDefault(path string, _ uint64) format.Method {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case extIn(ext, preCompressedExtensions):
		return format.MethodNone
	case extIn(ext, textLikeExtensions):
		return format.MethodZstd
	case extIn(ext, dbLikeExtensions):
		return format.MethodZstd
	default:
		return format.MethodZstd
	}
}

func extIn(ext string, set map[string]struct{}) bool {
	_, ok := set[ext]
	return ok
}
