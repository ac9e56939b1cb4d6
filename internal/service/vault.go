package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"unicode/utf8"

	"github.com/awnumar/memguard"
	"go.uber.org/zap"

	"github.com/atinyakov/pwkeeper/internal/crypto"
	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
	"github.com/atinyakov/pwkeeper/internal/models"
	"github.com/atinyakov/pwkeeper/internal/session"
)

// VaultManager owns the vault record, the record collection and at most one
// live Session. It is not safe for concurrent use.
type VaultManager struct {
	store RecordStore
	env   *crypto.Envelope
	log   *zap.Logger

	state   models.State
	session *session.Session
}

// NewVaultManager constructs a VaultManager on top of store. The initial
// state is Provisioned if a vault record exists and Uninitialized otherwise.
// A nil env selects the default key derivation; a nil log discards output.
func NewVaultManager(ctx context.Context, store RecordStore, env *crypto.Envelope, log *zap.Logger) (*VaultManager, error) {
	if env == nil {
		env = crypto.NewEnvelope(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	m := &VaultManager{store: store, env: env, log: log, state: models.Uninitialized}

	rec, err := store.ReadVaultRow(ctx)
	if err != nil {
		return nil, storageErr("read vault row", err)
	}
	if rec != nil {
		m.state = models.Provisioned
	}
	return m, nil
}

// State returns the current authentication state.
func (m *VaultManager) State() models.State {
	return m.state
}

// Authenticate provisions a new vault on first use, or unlocks the existing
// one. A wrong password returns errors.ErrAuthenticationFailure and leaves the
// manager unauthenticated; retrying is up to the caller.
func (m *VaultManager) Authenticate(ctx context.Context, password string) error {
	if m.state == models.Authenticated {
		return vaulterrors.ErrAlreadyAuthenticated
	}
	if password == "" {
		return vaulterrors.ErrEmptyPassword
	}

	rec, err := m.store.ReadVaultRow(ctx)
	if err != nil {
		return storageErr("read vault row", err)
	}
	if rec == nil {
		return m.provision(ctx, password)
	}
	return m.unlock(rec, password)
}

func (m *VaultManager) provision(ctx context.Context, password string) error {
	salt, wrapped, dek, err := m.env.Create(password)
	if err != nil {
		return fmt.Errorf("provision vault: %w", err)
	}
	if err := m.store.WriteVaultRow(ctx, salt, wrapped); err != nil {
		memguard.WipeBytes(dek)
		return storageErr("write vault row", err)
	}
	m.state = models.Provisioned

	sess, err := session.New(dek, salt, m.env)
	if err != nil {
		return err
	}
	m.session = sess
	m.state = models.Authenticated
	m.log.Info("vault provisioned")
	return nil
}

func (m *VaultManager) unlock(rec *models.VaultRecord, password string) error {
	m.state = models.Provisioned

	dek, err := m.env.Open(password, rec.Salt, rec.WrappedDEK)
	if err != nil {
		m.log.Warn("authentication failed", zap.Error(err))
		return err
	}
	sess, err := session.New(dek, rec.Salt, m.env)
	if err != nil {
		return err
	}
	m.session = sess
	m.state = models.Authenticated
	m.log.Info("vault unlocked", zap.String("vault_id", rec.ID))
	return nil
}

// active is the guard every state-requiring operation starts with.
func (m *VaultManager) active() (*session.Session, error) {
	if m.state != models.Authenticated || m.session == nil {
		return nil, vaulterrors.ErrNotAuthenticated
	}
	return m.session, nil
}

// checkName rejects names that not every store can hold byte for byte.
func checkName(name string) error {
	if name == "" {
		return vaulterrors.ErrInvalidName
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: not valid UTF-8", vaulterrors.ErrInvalidName)
	}
	return nil
}

// Get returns the decrypted record stored under name.
func (m *VaultManager) Get(ctx context.Context, name string) (models.Entry, error) {
	sess, err := m.active()
	if err != nil {
		return models.Entry{}, err
	}
	if err := checkName(name); err != nil {
		return models.Entry{}, err
	}

	rec, err := m.store.ReadSecret(ctx, name)
	if err != nil {
		return models.Entry{}, storageErr("read secret", err)
	}
	if rec == nil {
		return models.Entry{}, fmt.Errorf("%w: %q", vaulterrors.ErrNotFound, name)
	}

	info, err := sess.DecryptField(rec.EncInfo)
	if err != nil {
		return models.Entry{}, fmt.Errorf("record %q info: %w", name, err)
	}
	secret, err := sess.DecryptField(rec.EncSecret)
	if err != nil {
		return models.Entry{}, fmt.Errorf("record %q secret: %w", name, err)
	}
	return models.Entry{Name: name, Info: info, Secret: secret}, nil
}

// Has reports whether a record named name exists.
func (m *VaultManager) Has(ctx context.Context, name string) (bool, error) {
	if _, err := m.active(); err != nil {
		return false, err
	}
	if err := checkName(name); err != nil {
		return false, err
	}
	rec, err := m.store.ReadSecret(ctx, name)
	if err != nil {
		return false, storageErr("read secret", err)
	}
	return rec != nil, nil
}

// Put stores a new record. An existing record is never overwritten.
func (m *VaultManager) Put(ctx context.Context, name, info, secret string) error {
	sess, err := m.active()
	if err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}

	existing, err := m.store.ReadSecret(ctx, name)
	if err != nil {
		return storageErr("read secret", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: %q", vaulterrors.ErrAlreadyExists, name)
	}

	encInfo, err := sess.EncryptField(info)
	if err != nil {
		return fmt.Errorf("encrypt info: %w", err)
	}
	encSecret, err := sess.EncryptField(secret)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}
	if err := m.store.InsertSecret(ctx, name, encInfo, encSecret); err != nil {
		return storageErr("insert secret", err)
	}
	m.log.Debug("record added", zap.String("name", name))
	return nil
}

// Delete removes the record stored under name.
func (m *VaultManager) Delete(ctx context.Context, name string) error {
	if _, err := m.active(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	if err := m.store.DeleteSecret(ctx, name); err != nil {
		return storageErr("delete secret", err)
	}
	m.log.Debug("record deleted", zap.String("name", name))
	return nil
}

// List returns the record names in lexicographic byte order. Nothing is read
// until the sequence is iterated, and every iteration scans the store again.
// Errors, including errors.ErrNotAuthenticated, are yielded with an empty name
// and end the sequence.
func (m *VaultManager) List(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if _, err := m.active(); err != nil {
			yield("", err)
			return
		}
		names, err := m.store.ListSecretNames(ctx)
		if err != nil {
			yield("", storageErr("list secrets", err))
			return
		}
		slices.Sort(names)
		for _, name := range names {
			if !yield(name, nil) {
				return
			}
		}
	}
}

// ChangePassword re-wraps the vault key under newPassword. The current
// password must be supplied again and must open the stored vault record.
// Stored records are left untouched.
func (m *VaultManager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	sess, err := m.active()
	if err != nil {
		return err
	}
	if newPassword == "" {
		return vaulterrors.ErrEmptyPassword
	}

	rec, err := m.store.ReadVaultRow(ctx)
	if err != nil {
		return storageErr("read vault row", err)
	}
	if rec == nil {
		return fmt.Errorf("%w: vault record missing", vaulterrors.ErrStorage)
	}

	dek, err := m.env.Open(oldPassword, rec.Salt, rec.WrappedDEK)
	if err != nil {
		m.log.Warn("password change rejected", zap.Error(err))
		return err
	}
	match := sess.MatchesKey(dek)
	memguard.WipeBytes(dek)
	if !match {
		return vaulterrors.ErrAuthenticationFailure
	}

	wrapped, err := sess.RotatePassword(newPassword)
	if err != nil {
		return fmt.Errorf("rotate password: %w", err)
	}
	if err := m.store.WriteVaultRow(ctx, rec.Salt, wrapped); err != nil {
		return storageErr("write vault row", err)
	}
	m.log.Info("master password changed")
	return nil
}

// Reset deletes every record and the vault record, then drops the session.
// The manager returns to Uninitialized; the next Authenticate provisions a
// new vault. Stores implementing VaultResetter do both deletions atomically;
// otherwise secrets are cleared before the vault row.
func (m *VaultManager) Reset(ctx context.Context) error {
	if _, err := m.active(); err != nil {
		return err
	}
	if r, ok := m.store.(VaultResetter); ok {
		if err := r.ResetVault(ctx); err != nil {
			return storageErr("reset vault", err)
		}
	} else {
		if err := m.store.ClearAllSecrets(ctx); err != nil {
			return storageErr("clear secrets", err)
		}
		if err := m.store.DeleteVaultRow(ctx); err != nil {
			return storageErr("delete vault row", err)
		}
	}
	m.session.Destroy()
	m.session = nil
	m.state = models.Uninitialized
	m.log.Info("vault reset")
	return nil
}

// Close drops any live session.
func (m *VaultManager) Close() error {
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
		m.state = models.Provisioned
	}
	return nil
}

// storageErr tags store failures with errors.ErrStorage. Record-level
// outcomes reported by the store pass through unchanged.
func storageErr(op string, err error) error {
	if errors.Is(err, vaulterrors.ErrNotFound) || errors.Is(err, vaulterrors.ErrAlreadyExists) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", vaulterrors.ErrStorage, op, err)
}
