package clierror

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
)

// Exit codes.
const (
	ExitSuccess           = 0 // Operation completed successfully
	ExitGeneral           = 1 // Unknown/unhandled error
	ExitAuth              = 2 // Wrong or missing master password
	ExitNotFound          = 3 // Record doesn't exist
	ExitAlreadyExists     = 4 // Record name taken
	ExitDecryptionFailure = 5 // Stored record cannot be decrypted
)

// Error codes for programmatic handling.
const (
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeAlreadyExists        = "ALREADY_EXISTS"
	CodeDecryptionFailed     = "DECRYPTION_FAILED"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeStorage              = "STORAGE_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
)

// CLIError is an error ready to be shown to the user.
type CLIError struct {
	Code     string
	Message  string
	Hint     string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// From maps err onto a CLIError. A nil err yields nil; an existing CLIError
// is returned unchanged.
func From(err error) *CLIError {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	switch {
	case errors.Is(err, vaulterrors.ErrAuthenticationFailure):
		return &CLIError{
			Code:     CodeAuthenticationFailed,
			Message:  "wrong master password",
			ExitCode: ExitAuth,
			Err:      err,
		}
	case errors.Is(err, vaulterrors.ErrEmptyPassword):
		return &CLIError{
			Code:     CodeAuthenticationFailed,
			Message:  err.Error(),
			Hint:     "Enter a non-empty master password",
			ExitCode: ExitAuth,
			Err:      err,
		}
	case errors.Is(err, vaulterrors.ErrNotAuthenticated):
		return &CLIError{
			Code:     CodeAuthenticationFailed,
			Message:  err.Error(),
			ExitCode: ExitAuth,
			Err:      err,
		}
	case errors.Is(err, vaulterrors.ErrNotFound):
		return &CLIError{
			Code:     CodeNotFound,
			Message:  err.Error(),
			Hint:     "Check record names with 'pwkeeper list'",
			ExitCode: ExitNotFound,
			Err:      err,
		}
	case errors.Is(err, vaulterrors.ErrAlreadyExists):
		return &CLIError{
			Code:     CodeAlreadyExists,
			Message:  err.Error(),
			Hint:     "Use a different name or delete the existing record first",
			ExitCode: ExitAlreadyExists,
			Err:      err,
		}
	case errors.Is(err, vaulterrors.ErrDecryptionFailure):
		return &CLIError{
			Code:     CodeDecryptionFailed,
			Message:  err.Error(),
			Hint:     "The record is corrupt or belongs to another vault; delete and re-add it",
			ExitCode: ExitDecryptionFailure,
			Err:      err,
		}
	case errors.Is(err, vaulterrors.ErrInvalidName):
		return &CLIError{
			Code:     CodeInvalidInput,
			Message:  err.Error(),
			ExitCode: ExitGeneral,
			Err:      err,
		}
	case errors.Is(err, vaulterrors.ErrStorage):
		return &CLIError{
			Code:     CodeStorage,
			Message:  err.Error(),
			Hint:     "Check the --store, --path and --dsn settings",
			ExitCode: ExitGeneral,
			Err:      err,
		}
	default:
		return &CLIError{
			Code:     CodeInternalError,
			Message:  err.Error(),
			ExitCode: ExitGeneral,
			Err:      err,
		}
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return From(err).ExitCode
}

// Format renders the error as text with an optional hint line.
func Format(err *CLIError) string {
	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// Print writes the formatted error to w, in red when w is a terminal.
func Print(w io.Writer, err *CLIError) {
	color.New(color.FgRed).Fprintln(w, Format(err))
}
