package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
	"github.com/atinyakov/pwkeeper/internal/models"
)

// BoltFile is the bbolt database file name used inside the data directory.
const BoltFile = "password_manager.bolt"

var (
	vaultBucket   = []byte("vault")
	secretsBucket = []byte("secrets")
	vaultKey      = []byte("vault")
)

// BoltRecordStore keeps the vault in a single bbolt file. Secret records are
// keyed by name, so the bucket cursor yields names in byte order.
type BoltRecordStore struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the bbolt database at path with mode 0600.
func OpenBolt(path string) (*BoltRecordStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{vaultBucket, secretsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltRecordStore{db: db}, nil
}

// ReadVaultRow returns the vault row, or nil if the vault is not provisioned.
func (s *BoltRecordStore) ReadVaultRow(_ context.Context) (*models.VaultRecord, error) {
	var rec *models.VaultRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(vaultBucket).Get(vaultKey)
		if data == nil {
			return nil
		}
		rec = &models.VaultRecord{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("read vault row: %w", err)
	}
	return rec, nil
}

// WriteVaultRow inserts the vault row or replaces its salt and wrapped key.
func (s *BoltRecordStore) WriteVaultRow(_ context.Context, salt, wrappedDEK []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(vaultBucket)
		rec := models.VaultRecord{ID: uuid.NewString()}
		if data := b.Get(vaultKey); data != nil {
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
		}
		rec.Salt = salt
		rec.WrappedDEK = wrappedDEK

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(vaultKey, data)
	})
	if err != nil {
		return fmt.Errorf("write vault row: %w", err)
	}
	return nil
}

// DeleteVaultRow removes the vault row.
func (s *BoltRecordStore) DeleteVaultRow(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(vaultBucket).Delete(vaultKey)
	})
	if err != nil {
		return fmt.Errorf("delete vault row: %w", err)
	}
	return nil
}

// ReadSecret returns the record stored under name, or nil if there is none.
func (s *BoltRecordStore) ReadSecret(_ context.Context, name string) (*models.SecretRecord, error) {
	var rec *models.SecretRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(secretsBucket).Get([]byte(name))
		if data == nil {
			return nil
		}
		rec = &models.SecretRecord{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}
	return rec, nil
}

// InsertSecret adds a new record; a duplicate name fails with
// errors.ErrAlreadyExists.
func (s *BoltRecordStore) InsertSecret(_ context.Context, name, encInfo, encSecret string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(secretsBucket)
		if b.Get([]byte(name)) != nil {
			return vaulterrors.ErrAlreadyExists
		}
		data, err := json.Marshal(models.SecretRecord{
			ID:        uuid.NewString(),
			Name:      name,
			EncInfo:   encInfo,
			EncSecret: encSecret,
		})
		if err != nil {
			return err
		}
		return b.Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("insert secret: %w", err)
	}
	return nil
}

// DeleteSecret removes the record stored under name; a missing name fails
// with errors.ErrNotFound.
func (s *BoltRecordStore) DeleteSecret(_ context.Context, name string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(secretsBucket)
		if b.Get([]byte(name)) == nil {
			return vaulterrors.ErrNotFound
		}
		return b.Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

// ListSecretNames returns every record name in ascending byte order.
func (s *BoltRecordStore) ListSecretNames(_ context.Context) ([]string, error) {
	names := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(secretsBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	return names, nil
}

// ClearAllSecrets drops and recreates the secrets bucket.
func (s *BoltRecordStore) ClearAllSecrets(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(secretsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(secretsBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear secrets: %w", err)
	}
	return nil
}

// ResetVault drops the secrets bucket and the vault row in one update.
func (s *BoltRecordStore) ResetVault(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(secretsBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(secretsBucket); err != nil {
			return err
		}
		return tx.Bucket(vaultBucket).Delete(vaultKey)
	})
	if err != nil {
		return fmt.Errorf("reset vault: %w", err)
	}
	return nil
}

// Close releases the database file lock.
func (s *BoltRecordStore) Close() error {
	return s.db.Close()
}
