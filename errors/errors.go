// Package errors provides error handling for petchain-anchor.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotSynced) {
//	    // handle never-synced record
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors for the anchoring pipeline.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested sync state or stored blob does not exist
	ErrNotFound = New("not found")

	// ErrNotSynced indicates verification was requested for a record with no
	// successful prior sync
	ErrNotSynced = New("record not synced")

	// ErrStoreUnavailable indicates the content-addressable store could not be reached
	ErrStoreUnavailable = New("content store unavailable")

	// ErrDecryption indicates ciphertext/key mismatch or corrupted ciphertext
	ErrDecryption = New("decryption failed")

	// ErrLedgerNotConfigured indicates no signing identity is available;
	// the ledger client is running in read-only mode
	ErrLedgerNotConfigured = New("ledger signing identity not configured")

	// ErrLedgerSubmission indicates the ledger rejected or failed a transaction
	ErrLedgerSubmission = New("ledger submission failed")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsNotSyncedError checks if an error is or wraps ErrNotSynced
func IsNotSyncedError(err error) bool {
	return err != nil && Is(err, ErrNotSynced)
}

// IsStoreUnavailableError checks if an error is or wraps ErrStoreUnavailable
func IsStoreUnavailableError(err error) bool {
	return err != nil && Is(err, ErrStoreUnavailable)
}

// IsDecryptionError checks if an error is or wraps ErrDecryption
func IsDecryptionError(err error) bool {
	return err != nil && Is(err, ErrDecryption)
}

// IsLedgerNotConfiguredError checks if an error is or wraps ErrLedgerNotConfigured
func IsLedgerNotConfiguredError(err error) bool {
	return err != nil && Is(err, ErrLedgerNotConfigured)
}

// IsLedgerSubmissionError checks if an error is or wraps ErrLedgerSubmission
func IsLedgerSubmissionError(err error) bool {
	return err != nil && Is(err, ErrLedgerSubmission)
}

// WrapNotFound wraps an error as a not-found error with context
func WrapNotFound(err error, context string) error {
	return Wrap(Wrap(ErrNotFound, err.Error()), context)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewLedgerSubmissionError creates a ledger-submission error carrying the
// ledger's structured rejection reason
func NewLedgerSubmissionError(format string, args ...interface{}) error {
	return Wrap(ErrLedgerSubmission, Newf(format, args...).Error())
}
