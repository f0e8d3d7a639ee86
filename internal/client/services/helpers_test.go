package services

import (
	"context"
	"crypto/sha256"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authigel/internal/backup/envelope"
	"github.com/dmitrijs2005/authigel/internal/backup/retention"
	"github.com/dmitrijs2005/authigel/internal/client/backupstore"
	"github.com/dmitrijs2005/authigel/internal/client/keystore"
	"github.com/dmitrijs2005/authigel/internal/client/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

// fastSealer keeps the real envelope layout but derives keys in one round.
func fastSealer() *envelope.Codec {
	return envelope.New(envelope.WithKDF(func(password, salt []byte, _ int, keyLen int) []byte {
		return pbkdf2.Key(password, salt, 1, keyLen, sha256.New)
	}))
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// flakyDest wraps a destination and fails selected operations.
type flakyDest struct {
	backupstore.Store

	mu        sync.Mutex
	writes    int
	failWrite error
	failList  error
	failDel   error
}

func (d *flakyDest) Write(ctx context.Context, name string, data []byte) (string, error) {
	d.mu.Lock()
	d.writes++
	err := d.failWrite
	d.mu.Unlock()
	if err != nil {
		return "", err
	}
	return d.Store.Write(ctx, name, data)
}

func (d *flakyDest) List(ctx context.Context) ([]retention.Artifact, error) {
	if d.failList != nil {
		return nil, d.failList
	}
	return d.Store.List(ctx)
}

func (d *flakyDest) Delete(ctx context.Context, location string) error {
	if d.failDel != nil {
		return d.failDel
	}
	return d.Store.Delete(ctx, location)
}

func (d *flakyDest) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

type env struct {
	store   *storage.Store
	dest    *flakyDest
	ks      *keystore.FileKeystore
	clock   *fakeClock
	records *RecordService
	backup  *BackupService
	sealer  *envelope.Codec
}

func newEnv(t *testing.T, opts ...BackupOption) *env {
	t.Helper()
	dir := t.TempDir()

	st, err := storage.Open(context.Background(), filepath.Join(dir, "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	e := &env{
		store:  st,
		dest:   &flakyDest{Store: backupstore.NewDirStore(filepath.Join(dir, "backups"))},
		ks:     keystore.NewFileKeystore(filepath.Join(dir, "device.key")),
		clock:  &fakeClock{t: time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)},
		sealer: fastSealer(),
	}
	e.records = NewRecordService(st, e.clock.Now, nil)

	base := []BackupOption{WithClock(e.clock.Now), WithLocation(time.UTC), WithSealer(e.sealer)}
	e.backup = NewBackupService(st, e.dest, e.ks, e.records, append(base, opts...)...)
	return e
}

func (e *env) artifacts(t *testing.T) []retention.Artifact {
	t.Helper()
	got, err := e.dest.List(context.Background())
	require.NoError(t, err)
	return got
}
