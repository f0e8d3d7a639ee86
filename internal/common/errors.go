// Package common defines shared constants, sentinel errors and small helpers
// used across AuthIgel components. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Backup errors.
	ErrNoPasswordConfigured = errors.New("no backup password configured")
	ErrBackupInProgress     = errors.New("backup already in progress")

	// Record validation errors.
	ErrEmptyIssuer = errors.New("issuer must not be empty")
	ErrEmptySecret = errors.New("secret must not be empty")
)
