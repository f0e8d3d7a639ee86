package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authigel/internal/client/models"
	"github.com/dmitrijs2005/authigel/internal/client/services"
	"github.com/dmitrijs2005/authigel/internal/common"
	"github.com/dmitrijs2005/authigel/internal/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ------------ fakes ------------

type fakeRecords struct {
	recs     []models.OtpRecord
	codes    []services.RecordCode
	added    []string
	deleted  []string
	imported string
	report   services.ImportReport
	err      error
}

func (f *fakeRecords) Add(_ context.Context, issuer, holder, secret string) (models.OtpRecord, error) {
	if f.err != nil {
		return models.OtpRecord{}, f.err
	}
	f.added = append(f.added, issuer+"|"+holder+"|"+secret)
	return models.OtpRecord{ID: "new", Issuer: issuer, Holder: holder}, nil
}

func (f *fakeRecords) AddURI(_ context.Context, uri string) (models.OtpRecord, error) {
	if f.err != nil {
		return models.OtpRecord{}, f.err
	}
	f.added = append(f.added, uri)
	return models.OtpRecord{ID: "new", Issuer: "U"}, nil
}

func (f *fakeRecords) List(context.Context) ([]models.OtpRecord, error) { return f.recs, f.err }

func (f *fakeRecords) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRecords) Codes(context.Context) ([]services.RecordCode, error) { return f.codes, f.err }

func (f *fakeRecords) Export(_ context.Context, w io.Writer) (int, error) {
	_, err := io.WriteString(w, "otpauth://totp/A:b?secret=MZXW6YTB")
	return 1, err
}

func (f *fakeRecords) Import(_ context.Context, r io.Reader) (services.ImportReport, error) {
	b, _ := io.ReadAll(r)
	f.imported = string(b)
	return f.report, f.err
}

func (f *fakeRecords) WriteQR(_ context.Context, id string, _ int, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "png:"+id)
	return err
}

type fakeBackups struct {
	mu sync.Mutex

	maybeRuns   int
	runNows     int
	result      services.Result
	runErr      error
	password    []byte
	cleared     bool
	freq        models.Frequency
	last        services.LastBackup
	hasLast     bool
	restoreFrom string
	restorePw   []byte
	report      services.ImportReport
	restoreErr  error
}

func (f *fakeBackups) MaybeRun(context.Context) (services.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maybeRuns++
	return f.result, f.runErr
}

func (f *fakeBackups) maybeRunCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maybeRuns
}

func (f *fakeBackups) RunNow(context.Context) (services.Result, error) {
	f.runNows++
	return f.result, f.runErr
}

func (f *fakeBackups) SetPassword(_ context.Context, pw []byte) error {
	f.password = bytes.Clone(pw)
	common.WipeByteArray(pw)
	return nil
}

func (f *fakeBackups) ClearPassword(context.Context) error {
	f.cleared = true
	f.password = nil
	return nil
}

func (f *fakeBackups) HasPassword(context.Context) (bool, error) { return len(f.password) > 0, nil }

func (f *fakeBackups) LastBackup(context.Context) (services.LastBackup, bool, error) {
	return f.last, f.hasLast, nil
}

func (f *fakeBackups) Frequency(context.Context) (models.Frequency, error) { return f.freq, nil }

func (f *fakeBackups) SetFrequency(_ context.Context, fr models.Frequency) error {
	f.freq = fr
	return nil
}

func (f *fakeBackups) Restore(_ context.Context, r io.Reader, pw []byte) (services.ImportReport, error) {
	b, _ := io.ReadAll(r)
	f.restoreFrom = string(b)
	f.restorePw = bytes.Clone(pw)
	return f.report, f.restoreErr
}

func (f *fakeBackups) RestoreLatest(_ context.Context, pw []byte) (services.ImportReport, error) {
	f.restoreFrom = "latest"
	f.restorePw = bytes.Clone(pw)
	return f.report, f.restoreErr
}

// ------------ helpers ------------

func newTestApp(input string) (*App, *fakeRecords, *fakeBackups, *bytes.Buffer) {
	recs, backups := &fakeRecords{}, &fakeBackups{freq: models.Never()}
	var out bytes.Buffer
	a := NewApp(recs, backups, "/tmp/backups", nil)
	a.reader = bufio.NewReader(strings.NewReader(input))
	a.out = &out
	return a, recs, backups, &out
}

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more answers")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

// ------------ records ------------

func TestApp_List(t *testing.T) {
	ctx := context.Background()
	a, recs, _, out := newTestApp("")

	require.NoError(t, a.List(ctx))
	assert.Contains(t, out.String(), "No records.")

	recs.recs = []models.OtpRecord{{ID: "r1", Issuer: "Acme", Holder: "bob", AddedAt: time.Unix(0, 0)}}
	out.Reset()
	require.NoError(t, a.List(ctx))
	assert.Contains(t, out.String(), "ISSUER")
	assert.Contains(t, out.String(), "r1")
	assert.Contains(t, out.String(), "Acme")
}

func TestApp_Codes(t *testing.T) {
	a, recs, _, out := newTestApp("")
	recs.codes = []services.RecordCode{
		{Record: models.OtpRecord{ID: "r1", Issuer: "Acme", Holder: "bob"}, Code: otp.Code{Value: "123456", Remaining: 7 * time.Second}},
		{Record: models.OtpRecord{ID: "r2", Issuer: "Bad"}, Err: errors.New("corrupt secret")},
	}

	require.NoError(t, a.Codes(context.Background()))
	assert.Contains(t, out.String(), "123456")
	assert.Contains(t, out.String(), "7s")
	assert.Contains(t, out.String(), "corrupt secret")
}

func TestApp_Add(t *testing.T) {
	a, recs, _, out := newTestApp("Acme\nbob@x.com\njbsw y3dp\n")

	require.NoError(t, a.Add(context.Background()))
	assert.Equal(t, []string{"Acme|bob@x.com|jbsw y3dp"}, recs.added)
	assert.Contains(t, out.String(), "Added")
}

func TestApp_AddGeneratesSecret(t *testing.T) {
	a, recs, _, out := newTestApp("Acme\n\n\n")

	require.NoError(t, a.Add(context.Background()))
	require.Len(t, recs.added, 1)

	parts := strings.Split(recs.added[0], "|")
	require.Len(t, parts, 3)
	assert.Equal(t, "Acme", parts[0])
	assert.Len(t, parts[2], 32, "20 random bytes encode to 32 Base32 characters")
	assert.Contains(t, out.String(), "Generated secret: "+parts[2])
}

func TestApp_AddError(t *testing.T) {
	a, recs, _, out := newTestApp("\n\n\n")
	recs.err = common.ErrEmptyIssuer

	err := a.Add(context.Background())
	assert.ErrorIs(t, err, common.ErrEmptyIssuer)
	assert.Contains(t, out.String(), "Error: issuer must not be empty")
}

func TestApp_DeleteAndAddURI(t *testing.T) {
	ctx := context.Background()
	a, recs, _, _ := newTestApp("")

	require.NoError(t, a.AddURI(ctx, "otpauth://totp/A:b?secret=MZXW6YTB"))
	require.NoError(t, a.Delete(ctx, "r1"))
	assert.Equal(t, []string{"r1"}, recs.deleted)

	recs.err = common.ErrorNotFound
	assert.ErrorIs(t, a.Delete(ctx, "r2"), common.ErrorNotFound)
}

func TestApp_ExportToFile(t *testing.T) {
	a, _, _, out := newTestApp("")
	path := filepath.Join(t.TempDir(), "export.txt")

	require.NoError(t, a.Export(context.Background(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "otpauth://totp/A:b?secret=MZXW6YTB", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Contains(t, out.String(), "1 record(s) exported")
}

func TestApp_ImportPasted(t *testing.T) {
	a, recs, _, out := newTestApp("otpauth://a\notpauth://b\n\n")
	recs.report = services.ImportReport{Total: 2, Added: 1, Failures: []services.LineError{{Line: 2, Err: errors.New("bad")}}}

	require.NoError(t, a.Import(context.Background(), ""))
	assert.Equal(t, "otpauth://a\notpauth://b", recs.imported)
	assert.Contains(t, out.String(), "Imported 1 of 2")
	assert.Contains(t, out.String(), "line 2: bad")
}

func TestApp_QR(t *testing.T) {
	a, _, _, _ := newTestApp("")
	path := filepath.Join(t.TempDir(), "code.png")

	require.NoError(t, a.QR(context.Background(), "r1", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png:r1", string(data))
}

// ------------ backup ------------

func TestApp_SetPassword(t *testing.T) {
	ctx := context.Background()
	a, _, backups, out := newTestApp("")

	stubPasswords(t, "one", "two")
	assert.Error(t, a.SetPassword(ctx))
	assert.Nil(t, backups.password)
	assert.Contains(t, out.String(), "passwords do not match")

	stubPasswords(t, "same", "same")
	require.NoError(t, a.SetPassword(ctx))
	assert.Equal(t, []byte("same"), backups.password)
}

func TestApp_ClearPassword(t *testing.T) {
	a, _, backups, _ := newTestApp("")
	backups.password = []byte("x")

	require.NoError(t, a.ClearPassword(context.Background()))
	assert.True(t, backups.cleared)
}

func TestApp_Backup(t *testing.T) {
	ctx := context.Background()
	a, _, backups, out := newTestApp("")

	backups.runErr = common.ErrNoPasswordConfigured
	assert.Error(t, a.Backup(ctx))
	assert.Contains(t, out.String(), "setpassword")

	backups.runErr = nil
	backups.result = services.Result{Outcome: services.OutcomeSucceeded, Location: "/b/x.txt", Records: 3, Pruned: []string{"/b/old.txt"}}
	out.Reset()
	require.NoError(t, a.Backup(ctx))
	assert.Contains(t, out.String(), "Backup of 3 record(s) written to /b/x.txt")
	assert.Contains(t, out.String(), "/b/old.txt")
}

func TestApp_Restore(t *testing.T) {
	ctx := context.Background()
	a, _, backups, out := newTestApp("")
	backups.report = services.ImportReport{Total: 2, Added: 2}

	stubPasswords(t, "")
	require.NoError(t, a.Restore(ctx, ""))
	assert.Equal(t, "latest", backups.restoreFrom)
	assert.Nil(t, backups.restorePw)
	assert.Contains(t, out.String(), "Restored 2 of 2")

	path := filepath.Join(t.TempDir(), "b.txt")
	require.NoError(t, os.WriteFile(path, []byte("envelope"), 0o600))
	stubPasswords(t, "pw")
	require.NoError(t, a.Restore(ctx, path))
	assert.Equal(t, "envelope", backups.restoreFrom)
	assert.Equal(t, []byte("pw"), backups.restorePw)

	stubPasswords(t, "pw")
	assert.Error(t, a.Restore(ctx, filepath.Join(t.TempDir(), "missing.txt")))
}

func TestApp_Frequency(t *testing.T) {
	ctx := context.Background()
	a, _, backups, out := newTestApp("")
	backups.result = services.Result{Outcome: services.OutcomeSucceeded}

	require.NoError(t, a.Frequency(ctx, ""))
	assert.Contains(t, out.String(), "never")

	require.NoError(t, a.Frequency(ctx, "every 3"))
	assert.Equal(t, models.Periodic(3), backups.freq)
	assert.Zero(t, backups.runNows)

	require.NoError(t, a.Frequency(ctx, "once"))
	assert.Equal(t, models.Once(), backups.freq)
	assert.Equal(t, 1, backups.runNows, "choosing once backs up right away")

	assert.Error(t, a.Frequency(ctx, "sometimes"))
}

func TestApp_Status(t *testing.T) {
	a, _, backups, out := newTestApp("")
	backups.freq = models.Periodic(1)
	backups.password = []byte("x")
	backups.hasLast = true
	backups.last = services.LastBackup{At: time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC), Location: "/b/x.txt"}

	require.NoError(t, a.Status(context.Background()))
	s := out.String()
	assert.Contains(t, s, "/tmp/backups")
	assert.Contains(t, s, "every 1 day(s)")
	assert.Contains(t, s, "Password set:     true")
	assert.Contains(t, s, "2024-05-10 10:00:00 (/b/x.txt)")
}

func TestApp_AutoBackupWatcher(t *testing.T) {
	a, _, backups, _ := newTestApp("")
	backups.result = services.Result{Outcome: services.OutcomeThrottled}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartAutoBackupWatcher(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return backups.maybeRunCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestApp_Run(t *testing.T) {
	silence(t)
	a, recs, _, out := newTestApp("")
	recs.recs = []models.OtpRecord{{ID: "r1", Issuer: "Acme"}}

	a.Run(context.Background(), strings.NewReader("list\nexit\n"))
	assert.Contains(t, out.String(), "Welcome to AuthIgel")
	assert.Contains(t, out.String(), "r1")
}
