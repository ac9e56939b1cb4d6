package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

var errMalformed = errors.New("malformed ciphertext")

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// newGCM builds an AES-GCM AEAD for a 32-byte key.
func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

// seal encrypts plaintext with a nonce generated here.
// Result layout: version || nonce || ciphertext+tag.
func seal(aead cipher.AEAD, version byte, plaintext, ad []byte) ([]byte, error) {
	ns := aead.NonceSize()
	out := make([]byte, 1+ns, 1+ns+len(plaintext)+aead.Overhead())
	out[0] = version
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(out, out[1:1+ns], plaintext, ad), nil
}

// open reverses seal. Any structural problem or tag mismatch is an error.
func open(aead cipher.AEAD, version byte, data, ad []byte) ([]byte, error) {
	ns := aead.NonceSize()
	if len(data) < 1+ns+aead.Overhead() {
		return nil, errMalformed
	}
	if data[0] != version {
		return nil, fmt.Errorf("%w: unsupported version %d", errMalformed, data[0])
	}
	return aead.Open(nil, data[1:1+ns], data[1+ns:], ad)
}
