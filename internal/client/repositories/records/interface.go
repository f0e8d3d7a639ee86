// Package records stores OTP records in the local SQLite vault.
package records

import (
	"context"

	"github.com/dmitrijs2005/authigel/internal/client/models"
)

// Repository keeps records in insertion order.
type Repository interface {
	// Add appends rec after every existing record.
	Add(ctx context.Context, rec models.OtpRecord) error

	// GetAll returns all records in insertion order.
	GetAll(ctx context.Context) ([]models.OtpRecord, error)

	// GetByID returns common.ErrorNotFound when no record has the id.
	GetByID(ctx context.Context, id string) (models.OtpRecord, error)

	// DeleteByID returns common.ErrorNotFound when no record has the id.
	DeleteByID(ctx context.Context, id string) error

	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error

	Count(ctx context.Context) (int, error)
}
