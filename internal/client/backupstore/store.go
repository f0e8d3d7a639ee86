// Package backupstore holds destinations for encrypted backup files.
//
// A destination writes named artifacts, reads them back by location, lists
// the artifacts that follow the automatic backup naming convention and
// deletes them. Locations are opaque strings meaningful only to the
// destination that returned them.
package backupstore

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authigel/internal/backup/retention"
)

var (
	ErrNotFound      = errors.New("backup not found")
	ErrInvalidName   = errors.New("invalid backup name")
	ErrInvalidConfig = errors.New("invalid backup destination config")
	ErrNameTaken     = errors.New("no free backup name")
)

// maxNameAttempts bounds the numbered alternatives tried by Write.
const maxNameAttempts = 100

// Store is a backup destination.
type Store interface {
	// Write stores data under name and returns its location. An existing
	// artifact is never replaced; when name is taken the next free
	// retention.NumberedName is used.
	Write(ctx context.Context, name string, data []byte) (string, error)
	// Read returns ErrNotFound when nothing is stored at location.
	Read(ctx context.Context, location string) ([]byte, error)
	// List returns automatic backups only (see retention.IsBackupName).
	List(ctx context.Context) ([]retention.Artifact, error)
	Delete(ctx context.Context, location string) error
	// Describe names the destination for humans.
	Describe() string
}
