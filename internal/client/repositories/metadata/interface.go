// Package metadata is a small key/value store living next to the records in
// the local vault. It keeps backup settings and bookkeeping.
package metadata

import (
	"context"
)

// Keys used by the backup subsystem.
const (
	KeyLastBackupAt       = "last_backup_at"
	KeyLastBackupLocation = "last_backup_location"
	KeyBackupPassword     = "backup_password"
	KeyBackupMode         = "backup_mode"
	KeyPeriodDays         = "period_days"
)

// Repository returns (nil, nil) from Get when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Has(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the given keys; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
