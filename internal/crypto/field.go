package crypto

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
)

const fieldVersion byte = 1

// tokenEncoding keeps tokens safe to store in text columns and JSON.
var tokenEncoding = base64.RawURLEncoding

// SealField encrypts plaintext under dek and returns a self-describing token.
func SealField(dek []byte, plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(dek)
	if err != nil {
		return "", fmt.Errorf("create field cipher: %w", err)
	}
	ct, err := seal(aead, fieldVersion, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("seal field: %w", err)
	}
	return tokenEncoding.EncodeToString(ct), nil
}

// OpenField decrypts a token produced by SealField under the same dek.
// Corrupt tokens and tokens from another vault fail with
// errors.ErrDecryptionFailure.
func OpenField(dek []byte, token string) (string, error) {
	aead, err := chacha20poly1305.NewX(dek)
	if err != nil {
		return "", fmt.Errorf("create field cipher: %w", err)
	}
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vaulterrors.ErrDecryptionFailure, err)
	}
	pt, err := open(aead, fieldVersion, raw, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", vaulterrors.ErrDecryptionFailure, err)
	}
	return string(pt), nil
}
