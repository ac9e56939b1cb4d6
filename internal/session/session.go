// Package session holds the unwrapped data-encryption key of an
// authenticated vault and performs all record-field cryptography with it.
package session

import (
	"crypto/subtle"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/atinyakov/pwkeeper/internal/crypto"
	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
)

// Session binds an unwrapped DEK to the envelope and salt that protect it.
// The DEK is kept in an encrypted memguard enclave and only decrypted into
// locked memory for the duration of a single call.
type Session struct {
	key  *memguard.Enclave
	salt []byte
	env  *crypto.Envelope
}

// New takes ownership of dek, which must come from Envelope.Create or
// Envelope.Open. The dek slice is wiped before New returns.
func New(dek, salt []byte, env *crypto.Envelope) (*Session, error) {
	if len(dek) != crypto.KeySize {
		memguard.WipeBytes(dek)
		return nil, fmt.Errorf("session: invalid data key length %d", len(dek))
	}
	if env == nil {
		memguard.WipeBytes(dek)
		return nil, fmt.Errorf("session: nil envelope")
	}
	return &Session{
		key:  memguard.NewEnclave(dek),
		salt: append([]byte(nil), salt...),
		env:  env,
	}, nil
}

// EncryptField seals plaintext under the session key.
func (s *Session) EncryptField(plaintext string) (string, error) {
	var token string
	err := s.withKey(func(dek []byte) error {
		var err error
		token, err = crypto.SealField(dek, plaintext)
		return err
	})
	return token, err
}

// DecryptField opens a token produced by EncryptField under the same vault key.
func (s *Session) DecryptField(token string) (string, error) {
	var plaintext string
	err := s.withKey(func(dek []byte) error {
		var err error
		plaintext, err = crypto.OpenField(dek, token)
		return err
	})
	return plaintext, err
}

// RotatePassword returns the session key wrapped under newPassword and the
// existing salt. It performs no verification; the caller must already have
// checked the current password.
func (s *Session) RotatePassword(newPassword string) ([]byte, error) {
	var wrapped []byte
	err := s.withKey(func(dek []byte) error {
		var err error
		wrapped, err = s.env.Rewrap(dek, s.salt, newPassword)
		return err
	})
	return wrapped, err
}

// MatchesKey reports whether dek equals the session key, in constant time.
func (s *Session) MatchesKey(dek []byte) bool {
	match := false
	_ = s.withKey(func(own []byte) error {
		match = subtle.ConstantTimeCompare(own, dek) == 1
		return nil
	})
	return match
}

// Destroy drops the session key. Every later call fails with
// errors.ErrNotAuthenticated.
func (s *Session) Destroy() {
	if s == nil {
		return
	}
	s.key = nil
	memguard.WipeBytes(s.salt)
	s.salt = nil
}

func (s *Session) withKey(fn func(dek []byte) error) error {
	if s == nil || s.key == nil {
		return vaulterrors.ErrNotAuthenticated
	}
	buf, err := s.key.Open()
	if err != nil {
		return fmt.Errorf("open session key: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}
