package errors

import "errors"

// Authentication errors describe the outcome of proving knowledge of the
// master password.
var (
	// ErrAuthenticationFailure indicates the master password did not open the vault.
	ErrAuthenticationFailure = errors.New("authentication failed: wrong master password")

	// ErrNotAuthenticated indicates an operation was attempted before a successful authentication.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAlreadyAuthenticated indicates authenticate was called on a live session.
	ErrAlreadyAuthenticated = errors.New("already authenticated")

	// ErrEmptyPassword indicates an empty master password was supplied.
	ErrEmptyPassword = errors.New("master password must not be empty")
)

// Record errors are expected, recoverable outcomes of CRUD operations.
var (
	// ErrNotFound indicates no record exists under the requested name.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates a record with the same name is already stored.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInvalidName indicates an empty record name.
	ErrInvalidName = errors.New("record name must not be empty")
)

// Cryptographic and storage errors.
var (
	// ErrDecryptionFailure indicates a field token is corrupt or belongs to another vault.
	ErrDecryptionFailure = errors.New("failed to decrypt field")

	// ErrStorage marks failures of the underlying record store.
	ErrStorage = errors.New("storage failure")
)
