package crypto

import (
	"fmt"

	"github.com/awnumar/memguard"

	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
)

const (
	wrapVersion byte = 1
	wrapAAD          = "pwkeeper/dek-wrap/v1"
)

// Envelope generates, wraps and unwraps data-encryption keys.
type Envelope struct {
	kdf KeyDeriver
}

// NewEnvelope returns an Envelope deriving KEKs with kdf.
// A nil kdf selects DefaultKDF.
func NewEnvelope(kdf KeyDeriver) *Envelope {
	if kdf == nil {
		kdf = DefaultKDF()
	}
	return &Envelope{kdf: kdf}
}

// Create provisions a new vault key: a fresh salt, a fresh DEK and the DEK
// wrapped under the KEK derived from password. Persisting salt and wrapped
// is up to the caller; dek must be wiped by whoever ends up owning it.
func (e *Envelope) Create(password string) (salt, wrapped, dek []byte, err error) {
	salt, err = RandomBytes(SaltSize)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate salt: %w", err)
	}
	dek, err = RandomBytes(KeySize)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate data key: %w", err)
	}
	wrapped, err = e.wrap(password, salt, dek)
	if err != nil {
		memguard.WipeBytes(dek)
		return nil, nil, nil, err
	}
	return salt, wrapped, dek, nil
}

// Open unwraps the DEK with the KEK derived from password and salt.
// A wrong password, and any damage to wrapped, yields
// errors.ErrAuthenticationFailure.
func (e *Envelope) Open(password string, salt, wrapped []byte) ([]byte, error) {
	kek := e.kdf.DeriveKey(password, salt)
	defer memguard.WipeBytes(kek)

	aead, err := newGCM(kek)
	if err != nil {
		return nil, err
	}
	dek, err := open(aead, wrapVersion, wrapped, []byte(wrapAAD))
	if err != nil {
		return nil, vaulterrors.ErrAuthenticationFailure
	}
	if len(dek) != KeySize {
		memguard.WipeBytes(dek)
		return nil, fmt.Errorf("%w: unexpected data key length %d", vaulterrors.ErrAuthenticationFailure, len(dek))
	}
	return dek, nil
}

// Rewrap seals the same DEK under a KEK derived from newPassword and the
// existing salt. Records encrypted under dek stay readable.
func (e *Envelope) Rewrap(dek, salt []byte, newPassword string) ([]byte, error) {
	if len(dek) != KeySize {
		return nil, fmt.Errorf("rewrap: invalid data key length %d", len(dek))
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("rewrap: invalid salt length %d", len(salt))
	}
	return e.wrap(newPassword, salt, dek)
}

func (e *Envelope) wrap(password string, salt, dek []byte) ([]byte, error) {
	kek := e.kdf.DeriveKey(password, salt)
	defer memguard.WipeBytes(kek)

	aead, err := newGCM(kek)
	if err != nil {
		return nil, err
	}
	wrapped, err := seal(aead, wrapVersion, dek, []byte(wrapAAD))
	if err != nil {
		return nil, fmt.Errorf("wrap data key: %w", err)
	}
	return wrapped, nil
}
