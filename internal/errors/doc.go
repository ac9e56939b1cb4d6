// Package errors defines the sentinel errors shared by the vault layers.
//
// Callers match them with the standard library's errors.Is; every layer wraps
// them with additional context using fmt.Errorf and %w.
package errors
