package crypto

import (
	"crypto/sha256"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor applied to every vault.
	DefaultIterations = 600_000
	// KeySize is the length in bytes of both the KEK and the DEK.
	KeySize = 32
	// SaltSize is the length in bytes of the per-vault salt.
	SaltSize = 16
)

// KeyDeriver turns a master password and a salt into a key-encryption key.
// Implementations must be deterministic.
type KeyDeriver interface {
	DeriveKey(password string, salt []byte) []byte
}

// PBKDF2 derives keys with PBKDF2-HMAC-SHA256.
type PBKDF2 struct {
	// Iterations is the work factor. Zero or negative means DefaultIterations.
	Iterations int
}

// DefaultKDF returns the key derivation used for real vaults.
func DefaultKDF() PBKDF2 {
	return PBKDF2{Iterations: DefaultIterations}
}

// DeriveKey returns a KeySize-byte key. The caller owns the result and should
// wipe it once done.
func (p PBKDF2) DeriveKey(password string, salt []byte) []byte {
	iterations := p.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	pw := []byte(password)
	defer memguard.WipeBytes(pw)
	return pbkdf2.Key(pw, salt, iterations, KeySize, sha256.New)
}
