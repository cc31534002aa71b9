// Package manifest implements the reserved "manifest.json" entry's shape
// and its canonical-hash signing/verification rules: format-level archive
// identification, a file inventory keyed by SHA-256, and an Ed25519
// signature list. Application-specific metadata does not belong here; per
// the archive format's manifest contract, applications store that under
// their own entry paths instead. Adapted from the reference Rust
// implementation's manifest.rs Manifest/Author/Metadata/FileEntry/
// SignatureEntry types.
package manifest

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/colinmarc/engarc/errs"
)

// Manifest is the reserved manifest.json payload.
type Manifest struct {
	Version      string           `json:"version"`
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Author       Author           `json:"author"`
	Metadata     Metadata         `json:"metadata"`
	Capabilities []string         `json:"capabilities,omitempty"`
	Files        []FileEntry      `json:"files,omitempty"`
	Signatures   []SignatureEntry `json:"signatures"`
}

// Author identifies who produced an archive.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Metadata carries archive-level version and provenance information.
type Metadata struct {
	Version  string   `json:"version"`
	Created  uint64   `json:"created"`
	Modified uint64   `json:"modified,omitempty"`
	License  string   `json:"license,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// FileEntry records one archived file's integrity hash in the manifest's
// inventory, independent of the central directory's own CRC-32.
type FileEntry struct {
	Path     string `json:"path"`
	SHA256   string `json:"sha256"`
	Size     uint64 `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// SignatureEntry is one Ed25519 signature over the manifest's canonical
// hash.
type SignatureEntry struct {
	Algorithm string `json:"algorithm"`
	PublicKey string `json:"public_key"` // hex, 32 bytes
	Signature string `json:"signature"`  // hex, 64 bytes
	Timestamp uint64 `json:"timestamp"`
	Signer    string `json:"signer,omitempty"`
}

const algorithmEd25519 = "ed25519"

// New creates a Manifest with the given identity, name, author, and
// content version. Created is left to the caller to set on Metadata, since
// this package does not call time.Now (callers stamp timestamps
// themselves).
func New(id, name string, author Author, version string) Manifest {
	return Manifest{
		Version: "1.0",
		ID:      id,
		Name:    name,
		Author:  author,
		Metadata: Metadata{
			Version: version,
		},
		Signatures: []SignatureEntry{},
	}
}

// AddFile appends a FileEntry for data under path, computing its SHA-256
// hash and size. This is independent of the archive's own CRC-32 check;
// the manifest's hash inventory lets a verifier check content integrity
// without decompressing via the archive reader.
func (m *Manifest) AddFile(path string, data []byte, mimeType string) {
	sum := sha256.Sum256(data)
	m.Files = append(m.Files, FileEntry{
		Path:     path,
		SHA256:   hex.EncodeToString(sum[:]),
		Size:     uint64(len(data)),
		MimeType: mimeType,
	})
}

// ToJSON serializes m as indented JSON, matching the manifest entry's
// on-disk representation.
func (m Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// FromJSON parses a Manifest from JSON bytes, such as those returned by
// archive.Reader.ReadManifest. Malformed JSON fails with
// errs.ErrInvalidStructure.
func FromJSON(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest: parsing JSON: %w", errs.ErrInvalidStructure, err)
	}
	return m, nil
}

// CanonicalHash returns the SHA-256 digest of m serialized as compact JSON
// with its Signatures array cleared to an empty array (not omitted; an
// absent field and an empty array would hash differently), the
// deterministic representation every signature is computed and verified
// against.
func (m Manifest) CanonicalHash() ([32]byte, error) {
	clone := m
	clone.Signatures = []SignatureEntry{}

	encoded, err := json.Marshal(clone)
	if err != nil {
		return [32]byte{}, fmt.Errorf("manifest: computing canonical hash: %w", err)
	}

	return sha256.Sum256(encoded), nil
}

// Sign appends a new SignatureEntry computed over m's canonical hash using
// signingKey, attributed to signer (optional) at the given Unix timestamp.
func (m *Manifest) Sign(signingKey ed25519.PrivateKey, signer string, timestamp uint64) error {
	hash, err := m.CanonicalHash()
	if err != nil {
		return err
	}

	signature := ed25519.Sign(signingKey, hash[:])
	publicKey, ok := signingKey.Public().(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("manifest: signing key has unexpected public key type")
	}

	m.Signatures = append(m.Signatures, SignatureEntry{
		Algorithm: algorithmEd25519,
		PublicKey: hex.EncodeToString(publicKey),
		Signature: hex.EncodeToString(signature),
		Timestamp: timestamp,
		Signer:    signer,
	})

	return nil
}

// VerifySignatures returns one boolean per entry in m.Signatures, in order,
// reporting whether that entry verifies against m's canonical hash.
func (m Manifest) VerifySignatures() ([]bool, error) {
	hash, err := m.CanonicalHash()
	if err != nil {
		return nil, err
	}

	results := make([]bool, len(m.Signatures))
	for i, entry := range m.Signatures {
		results[i] = verifyEntry(entry, hash)
	}

	return results, nil
}

func verifyEntry(entry SignatureEntry, hash [32]byte) bool {
	if entry.Algorithm != algorithmEd25519 {
		return false
	}

	publicKey, err := hex.DecodeString(entry.PublicKey)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return false
	}

	signature, err := hex.DecodeString(entry.Signature)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(publicKey, hash[:], signature)
}

// IsFullySigned reports whether m has at least one signature and every
// signature verifies.
func (m Manifest) IsFullySigned() (bool, error) {
	if len(m.Signatures) == 0 {
		return false, nil
	}

	results, err := m.VerifySignatures()
	if err != nil {
		return false, err
	}

	for _, ok := range results {
		if !ok {
			return false, nil
		}
	}

	return true, nil
}
