// Package keystore seals the backup password with a device-local key.
//
// The key is 32 random bytes kept in a file only the current user can read.
// Sealed blobs are nonce || ciphertext || tag (AES-256-GCM).
package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/authigel/internal/common"
	"github.com/dmitrijs2005/authigel/internal/cryptox"
)

var (
	ErrNoKey      = errors.New("device key not found")
	ErrCorruptKey = errors.New("device key file is corrupt")
)

// FileKeystore keeps its key at path.
type FileKeystore struct {
	path string
}

func NewFileKeystore(path string) *FileKeystore {
	return &FileKeystore{path: path}
}

// Encrypt seals secret, creating the device key on first use.
func (k *FileKeystore) Encrypt(secret []byte) ([]byte, error) {
	key, err := k.loadOrCreate()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	return cryptox.Seal(key, secret)
}

// Decrypt opens a blob produced by Encrypt. The caller owns the returned
// slice and should wipe it.
func (k *FileKeystore) Decrypt(blob []byte) ([]byte, error) {
	key, err := k.load()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	secret, err := cryptox.Open(key, blob)
	if err != nil {
		return nil, fmt.Errorf("open sealed secret: %w", err)
	}
	return secret, nil
}

// Clear deletes the device key. Blobs sealed with it become unreadable.
func (k *FileKeystore) Clear() error {
	if err := os.Remove(k.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove device key: %w", err)
	}
	return nil
}

func (k *FileKeystore) load() ([]byte, error) {
	key, err := os.ReadFile(k.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoKey
	}
	if err != nil {
		return nil, fmt.Errorf("read device key: %w", err)
	}
	if len(key) != cryptox.KeySize {
		common.WipeByteArray(key)
		return nil, ErrCorruptKey
	}
	return key, nil
}

func (k *FileKeystore) loadOrCreate() ([]byte, error) {
	key, err := k.load()
	if !errors.Is(err, ErrNoKey) {
		return key, err
	}

	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(k.path), err)
	}

	key = common.GenerateRandByteArray(cryptox.KeySize)
	f, err := os.OpenFile(k.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		common.WipeByteArray(key)
		return nil, fmt.Errorf("create device key: %w", err)
	}
	if _, err := f.Write(key); err != nil {
		_ = f.Close()
		common.WipeByteArray(key)
		return nil, fmt.Errorf("write device key: %w", err)
	}
	if err := f.Close(); err != nil {
		common.WipeByteArray(key)
		return nil, fmt.Errorf("write device key: %w", err)
	}
	return key, nil
}
