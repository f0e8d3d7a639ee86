package backupstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/authigel/internal/backup/retention"
	"github.com/dmitrijs2005/authigel/internal/filex"
)

// DirStore keeps backups as files in a local directory. Locations are
// absolute file paths.
type DirStore struct {
	dir string
}

// NewDirStore uses dir as is; it is created on first write.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

func (s *DirStore) Describe() string { return s.dir }

func (s *DirStore) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	dir, err := filex.EnsureSubDir(filepath.Dir(s.dir), filepath.Base(s.dir))
	if err != nil {
		return "", err
	}

	for n := 1; n <= maxNameAttempts; n++ {
		path := filepath.Join(dir, retention.NumberedName(name, n))
		err := filex.WriteFileNew(path, data, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNameTaken, name)
}

func (s *DirStore) Read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}

func (s *DirStore) List(ctx context.Context) ([]retention.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return nil, fmt.Errorf("abs %s: %w", s.dir, err)
	}

	var out []retention.Artifact
	for _, e := range entries {
		if e.IsDir() || !retention.IsBackupName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, retention.Artifact{
			Location: filepath.Join(dir, e.Name()),
			ModTime:  info.ModTime(),
		})
	}
	return out, nil
}

func (s *DirStore) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(location); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		return fmt.Errorf("delete %s: %w", location, err)
	}
	return nil
}
