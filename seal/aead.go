// Package seal implements the archive format's AEAD encryption pipeline:
// AES-256-GCM with 96-bit random nonces and 128-bit tags, in the two scopes
// the format defines: whole-archive and per-entry. It wraps crypto/aes and
// crypto/cipher from the standard library; see DESIGN.md for why this stays
// on the standard library rather than a third-party AEAD package.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/colinmarc/engarc/errs"
)

// KeySize is the required length, in bytes, of an encryption key.
const KeySize = 32

// NonceSize is the length, in bytes, of the random nonce prepended to every
// sealed payload.
const NonceSize = 12

// TagSize is the length, in bytes, of the GCM authentication tag appended to
// every ciphertext.
const TagSize = 16

// Key is a 32-byte AES-256 key. The package is agnostic about key
// derivation; callers supply the raw key material.
type Key [KeySize]byte

// NewKey validates that raw is exactly KeySize bytes and returns it as a Key.
func NewKey(raw []byte) (Key, error) {
	var k Key
	if len(raw) != KeySize {
		return k, fmt.Errorf("%w: key must be %d bytes, got %d", errs.ErrInvalidEncryptionMode, KeySize, len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrEncryptionFailed, err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under key with a fresh random nonce and returns
// nonce ‖ ciphertext ‖ tag, the wire format both archive-mode and per-entry
// mode use for their sealed payload.
func Seal(key Key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: generating nonce: %w", errs.ErrEncryptionFailed, err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return sealed, nil
}

// Open decrypts a nonce ‖ ciphertext ‖ tag payload produced by Seal. It
// fails with ErrDecryptionFailed if the payload is too short to contain a
// nonce and tag, or if the AEAD tag does not authenticate.
func Open(key Key, sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: sealed payload shorter than nonce+tag (%d bytes)", errs.ErrDecryptionFailed, NonceSize+TagSize)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, ciphertext := sealed[:NonceSize], sealed[NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrDecryptionFailed, err)
	}

	return plaintext, nil
}
