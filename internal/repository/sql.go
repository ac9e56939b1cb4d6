// Package repository provides service.RecordStore implementations backed by
// SQL databases (SQLite, PostgreSQL) and by bbolt.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
	"github.com/atinyakov/pwkeeper/internal/models"
)

// Dialect selects the placeholder syntax of the target database.
type Dialect int

const (
	// SQLite uses positional "?" placeholders.
	SQLite Dialect = iota
	// Postgres uses numbered "$n" placeholders.
	Postgres
)

// SQLRecordStore keeps the vault row and the secret records in a SQL database
// whose schema was created by the db package.
type SQLRecordStore struct {
	// DB is the database handle for executing queries and transactions.
	DB      *sql.DB
	dialect Dialect
}

// NewSQLRecordStore creates a store on top of db. db must already carry the
// schema for the given dialect.
func NewSQLRecordStore(db *sql.DB, dialect Dialect) *SQLRecordStore {
	return &SQLRecordStore{DB: db, dialect: dialect}
}

// q rewrites "?" placeholders for the store's dialect.
func (s *SQLRecordStore) q(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ReadVaultRow returns the vault row, or nil if the vault is not provisioned.
func (s *SQLRecordStore) ReadVaultRow(ctx context.Context) (*models.VaultRecord, error) {
	var rec models.VaultRecord
	err := s.DB.QueryRowContext(ctx, `SELECT id, salt, wrapped_dek FROM vault WHERE slot = 1`).
		Scan(&rec.ID, &rec.Salt, &rec.WrappedDEK)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vault row: %w", err)
	}
	return &rec, nil
}

// WriteVaultRow inserts the vault row or replaces its salt and wrapped key.
// The row ID is assigned on first insert and kept afterwards.
func (s *SQLRecordStore) WriteVaultRow(ctx context.Context, salt, wrappedDEK []byte) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO vault (slot, id, salt, wrapped_dek) VALUES (1, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET salt = excluded.salt, wrapped_dek = excluded.wrapped_dek
	`), uuid.NewString(), salt, wrappedDEK)
	if err != nil {
		return fmt.Errorf("write vault row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteVaultRow removes the vault row. Deleting an absent row is not an error.
func (s *SQLRecordStore) DeleteVaultRow(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM vault`); err != nil {
		return fmt.Errorf("delete vault row: %w", err)
	}
	return nil
}

// ReadSecret returns the record stored under name, or nil if there is none.
func (s *SQLRecordStore) ReadSecret(ctx context.Context, name string) (*models.SecretRecord, error) {
	var rec models.SecretRecord
	err := s.DB.QueryRowContext(ctx, s.q(`
		SELECT id, name, enc_info, enc_secret FROM secrets WHERE name = ?
	`), name).Scan(&rec.ID, &rec.Name, &rec.EncInfo, &rec.EncSecret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}
	return &rec, nil
}

// InsertSecret adds a new record. A duplicate name fails with
// errors.ErrAlreadyExists and leaves the existing row untouched.
func (s *SQLRecordStore) InsertSecret(ctx context.Context, name, encInfo, encSecret string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO secrets (id, name, enc_info, enc_secret) VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING
	`), uuid.NewString(), name, encInfo, encSecret)
	if err != nil {
		return fmt.Errorf("insert secret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert secret: %w", err)
	}
	if n == 0 {
		return vaulterrors.ErrAlreadyExists
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteSecret removes the record stored under name. A missing name fails
// with errors.ErrNotFound.
func (s *SQLRecordStore) DeleteSecret(ctx context.Context, name string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM secrets WHERE name = ?`), name)
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	if n == 0 {
		return vaulterrors.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListSecretNames returns every record name in ascending order.
func (s *SQLRecordStore) ListSecretNames(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name FROM secrets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	return names, nil
}

// ClearAllSecrets deletes every record and keeps the vault row.
func (s *SQLRecordStore) ClearAllSecrets(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM secrets`); err != nil {
		return fmt.Errorf("clear secrets: %w", err)
	}
	return nil
}

// ResetVault deletes every record and the vault row in one transaction.
func (s *SQLRecordStore) ResetVault(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM secrets`); err != nil {
		return fmt.Errorf("clear secrets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vault`); err != nil {
		return fmt.Errorf("delete vault row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLRecordStore) Close() error {
	return s.DB.Close()
}
