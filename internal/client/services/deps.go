package services

import (
	"context"

	"github.com/dmitrijs2005/authigel/internal/client/storage"
)

// Store is the local vault. *storage.Store implements it.
type Store interface {
	Repos() storage.Repositories
	WithTx(ctx context.Context, fn func(ctx context.Context, r storage.Repositories) error) error
}

// Keystore seals small secrets with a device-bound key.
// *keystore.FileKeystore implements it.
type Keystore interface {
	Encrypt(secret []byte) ([]byte, error)
	Decrypt(blob []byte) ([]byte, error)
	Clear() error
}

// Sealer produces and opens backup envelopes. *envelope.Codec implements it.
// Both methods wipe password.
type Sealer interface {
	Encrypt(password, plaintext []byte) ([]byte, error)
	Decrypt(password, data []byte) ([]byte, error)
}
