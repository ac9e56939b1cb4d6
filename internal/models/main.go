// Package models defines the core data structures for the vault and its records.
package models

// VaultRecord is the single row describing a provisioned vault.
type VaultRecord struct {
	// ID is the unique identifier of the vault.
	ID string `json:"id"`
	// Salt is the random per-vault salt for key derivation. Not secret.
	Salt []byte `json:"salt"`
	// WrappedDEK is the data-encryption key sealed under the key-encryption key.
	WrappedDEK []byte `json:"wrapped_dek"`
}

// SecretRecord is a stored record as the record store sees it.
type SecretRecord struct {
	// ID is the unique identifier of the record.
	ID string `json:"id"`
	// Name is the unique, case-sensitive key chosen by the user.
	Name string `json:"name"`
	// EncInfo is the encrypted login or info field.
	EncInfo string `json:"enc_info"`
	// EncSecret is the encrypted password field.
	EncSecret string `json:"enc_secret"`
}

// Entry is the decrypted view of a SecretRecord.
type Entry struct {
	Name   string
	Info   string
	Secret string
}

// State is the authentication state of a vault manager.
type State int

const (
	// Uninitialized means no vault record is persisted yet.
	Uninitialized State = iota
	// Provisioned means a vault record exists but no session is live.
	Provisioned
	// Authenticated means a session holding the data-encryption key is live.
	Authenticated
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Provisioned:
		return "provisioned"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
