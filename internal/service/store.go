// Package service implements the vault manager: the authentication state
// machine and all record operations, delegating persistence to a RecordStore.
package service

import (
	"context"

	"github.com/atinyakov/pwkeeper/internal/models"
)

// RecordStore defines the persistence operations needed by the VaultManager.
// Values are opaque to the store; it never sees plaintext.
type RecordStore interface {
	// ReadVaultRow returns the vault record, or nil if none is persisted.
	ReadVaultRow(ctx context.Context) (*models.VaultRecord, error)
	// WriteVaultRow inserts or replaces the single vault record.
	WriteVaultRow(ctx context.Context, salt, wrappedDEK []byte) error
	// DeleteVaultRow removes the vault record.
	DeleteVaultRow(ctx context.Context) error
	// ReadSecret returns the record stored under name, or nil if absent.
	ReadSecret(ctx context.Context, name string) (*models.SecretRecord, error)
	// InsertSecret stores a new record. It fails with errors.ErrAlreadyExists
	// if name is taken.
	InsertSecret(ctx context.Context, name, encInfo, encSecret string) error
	// DeleteSecret removes a record. It fails with errors.ErrNotFound if name
	// is absent.
	DeleteSecret(ctx context.Context, name string) error
	// ListSecretNames returns all record names in ascending order.
	ListSecretNames(ctx context.Context) ([]string, error)
	// ClearAllSecrets removes every record.
	ClearAllSecrets(ctx context.Context) error
}

// VaultResetter is implemented by stores that can delete every record and
// the vault record in one atomic step. Reset prefers it when available.
type VaultResetter interface {
	ResetVault(ctx context.Context) error
}
