// Package filestore keeps the whole vault in one JSON document on disk.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"

	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
	"github.com/atinyakov/pwkeeper/internal/models"
)

// File is the document name used inside the data directory.
const File = "storage.json"

type document struct {
	Vault   *models.VaultRecord   `json:"vault,omitempty"`
	Secrets []models.SecretRecord `json:"secrets"`
}

// Store is a service.RecordStore over a single JSON file. Every call reads
// the file; every mutation rewrites it through a temporary file and rename.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a Store for path. The file is created on the first write.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &document{Secrets: []models.SecretRecord{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *Store) save(doc *document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".storage-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// update loads the document, applies fn and saves the result if fn succeeds.
func (s *Store) update(op string, fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := s.save(doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) view(op string) (*document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc, nil
}

func indexOf(doc *document, name string) int {
	return slices.IndexFunc(doc.Secrets, func(r models.SecretRecord) bool { return r.Name == name })
}

// ReadVaultRow returns the vault row, or nil if the vault is not provisioned.
func (s *Store) ReadVaultRow(_ context.Context) (*models.VaultRecord, error) {
	doc, err := s.view("read vault row")
	if err != nil {
		return nil, err
	}
	return doc.Vault, nil
}

// WriteVaultRow inserts the vault row or replaces its salt and wrapped key.
func (s *Store) WriteVaultRow(_ context.Context, salt, wrappedDEK []byte) error {
	return s.update("write vault row", func(doc *document) error {
		if doc.Vault == nil {
			doc.Vault = &models.VaultRecord{ID: uuid.NewString()}
		}
		doc.Vault.Salt = salt
		doc.Vault.WrappedDEK = wrappedDEK
		return nil
	})
}

// DeleteVaultRow removes the vault row.
func (s *Store) DeleteVaultRow(_ context.Context) error {
	return s.update("delete vault row", func(doc *document) error {
		doc.Vault = nil
		return nil
	})
}

// ReadSecret returns the record stored under name, or nil if there is none.
func (s *Store) ReadSecret(_ context.Context, name string) (*models.SecretRecord, error) {
	doc, err := s.view("read secret")
	if err != nil {
		return nil, err
	}
	if i := indexOf(doc, name); i >= 0 {
		rec := doc.Secrets[i]
		return &rec, nil
	}
	return nil, nil
}

// InsertSecret adds a new record; a duplicate name fails with
// errors.ErrAlreadyExists.
func (s *Store) InsertSecret(_ context.Context, name, encInfo, encSecret string) error {
	return s.update("insert secret", func(doc *document) error {
		if indexOf(doc, name) >= 0 {
			return vaulterrors.ErrAlreadyExists
		}
		doc.Secrets = append(doc.Secrets, models.SecretRecord{
			ID:        uuid.NewString(),
			Name:      name,
			EncInfo:   encInfo,
			EncSecret: encSecret,
		})
		return nil
	})
}

// DeleteSecret removes the record stored under name; a missing name fails
// with errors.ErrNotFound.
func (s *Store) DeleteSecret(_ context.Context, name string) error {
	return s.update("delete secret", func(doc *document) error {
		i := indexOf(doc, name)
		if i < 0 {
			return vaulterrors.ErrNotFound
		}
		doc.Secrets = slices.Delete(doc.Secrets, i, i+1)
		return nil
	})
}

// ListSecretNames returns every record name in ascending byte order.
func (s *Store) ListSecretNames(_ context.Context) ([]string, error) {
	doc, err := s.view("list secrets")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Secrets))
	for _, r := range doc.Secrets {
		names = append(names, r.Name)
	}
	slices.Sort(names)
	return names, nil
}

// ClearAllSecrets deletes every record and keeps the vault row.
func (s *Store) ClearAllSecrets(_ context.Context) error {
	return s.update("clear secrets", func(doc *document) error {
		doc.Secrets = []models.SecretRecord{}
		return nil
	})
}

// ResetVault empties the document in a single rewrite.
func (s *Store) ResetVault(_ context.Context) error {
	return s.update("reset vault", func(doc *document) error {
		doc.Vault = nil
		doc.Secrets = []models.SecretRecord{}
		return nil
	})
}

// Close is a no-op; the file is not held open between calls.
func (s *Store) Close() error {
	return nil
}
