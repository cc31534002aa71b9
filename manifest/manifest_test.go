package manifest_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinmarc/engarc/manifest"
)

func TestManifestJSONRoundTrip(t *testing.T) {
	m := manifest.New("backup-2026-07-31", "Nightly Backup", manifest.Author{Name: "engarc"}, "1.0.0")
	m.AddFile("database/app.db", []byte("fake db bytes"), "application/octet-stream")

	encoded, err := m.ToJSON()
	require.NoError(t, err)

	decoded, err := manifest.FromJSON(encoded)
	require.NoError(t, err)
	assert.Equal(t, m.ID, decoded.ID)
	require.Len(t, decoded.Files, 1)
	assert.Equal(t, "database/app.db", decoded.Files[0].Path)
}

func TestSignAndVerifySignatures(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	m := manifest.New("id", "name", manifest.Author{Name: "author"}, "1.0.0")
	m.AddFile("a.txt", []byte("a"), "")

	require.NoError(t, m.Sign(priv, "author", 1700000000))

	results, err := m.VerifySignatures()
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, results)

	signed, err := m.IsFullySigned()
	require.NoError(t, err)
	assert.True(t, signed)
}

func TestTamperedManifestFailsVerification(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	m := manifest.New("id", "name", manifest.Author{Name: "author"}, "1.0.0")
	require.NoError(t, m.Sign(priv, "author", 1700000000))

	// Tamper with a non-signature field after signing.
	m.Name = "tampered name"

	results, err := m.VerifySignatures()
	require.NoError(t, err)
	assert.Contains(t, results, false)

	signed, err := m.IsFullySigned()
	require.NoError(t, err)
	assert.False(t, signed)
}

func TestUnsignedManifestIsNotFullySigned(t *testing.T) {
	m := manifest.New("id", "name", manifest.Author{Name: "author"}, "1.0.0")
	signed, err := m.IsFullySigned()
	require.NoError(t, err)
	assert.False(t, signed)
}

func TestVerifySignaturesRejectsWrongAlgorithm(t *testing.T) {
	m := manifest.New("id", "name", manifest.Author{Name: "author"}, "1.0.0")
	m.Signatures = append(m.Signatures, manifest.SignatureEntry{
		Algorithm: "rsa",
		PublicKey: "00",
		Signature: "00",
	})

	results, err := m.VerifySignatures()
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, results)
}
