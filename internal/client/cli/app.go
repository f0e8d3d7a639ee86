package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/authigel/internal/client/models"
	"github.com/dmitrijs2005/authigel/internal/client/services"
	"github.com/dmitrijs2005/authigel/internal/logging"
)

// RecordService is the part of services.RecordService the CLI uses.
type RecordService interface {
	Add(ctx context.Context, issuer, holder, secret string) (models.OtpRecord, error)
	AddURI(ctx context.Context, uri string) (models.OtpRecord, error)
	List(ctx context.Context) ([]models.OtpRecord, error)
	Delete(ctx context.Context, id string) error
	Codes(ctx context.Context) ([]services.RecordCode, error)
	Export(ctx context.Context, w io.Writer) (int, error)
	Import(ctx context.Context, r io.Reader) (services.ImportReport, error)
	WriteQR(ctx context.Context, id string, size int, w io.Writer) error
}

// BackupService is the part of services.BackupService the CLI uses.
type BackupService interface {
	MaybeRun(ctx context.Context) (services.Result, error)
	RunNow(ctx context.Context) (services.Result, error)
	SetPassword(ctx context.Context, password []byte) error
	ClearPassword(ctx context.Context) error
	HasPassword(ctx context.Context) (bool, error)
	LastBackup(ctx context.Context) (services.LastBackup, bool, error)
	Frequency(ctx context.Context) (models.Frequency, error)
	SetFrequency(ctx context.Context, f models.Frequency) error
	Restore(ctx context.Context, r io.Reader, password []byte) (services.ImportReport, error)
	RestoreLatest(ctx context.Context, password []byte) (services.ImportReport, error)
}

type App struct {
	records     RecordService
	backups     BackupService
	destination string
	log         logging.Logger
	reader      *bufio.Reader
	out         io.Writer
}

// NewApp builds the CLI over the given services. destination is only used
// for display.
func NewApp(records RecordService, backups BackupService, destination string, log logging.Logger) *App {
	if log == nil {
		log = logging.Discard()
	}
	return &App{
		records:     records,
		backups:     backups,
		destination: destination,
		log:         log,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
}

// Run starts the REPL on in and returns when the user exits or in is
// exhausted.
func (a *App) Run(ctx context.Context, in io.Reader) {
	a.reader = bufio.NewReader(in)
	fmt.Fprintln(a.out, "Welcome to AuthIgel CLI (type 'help' for commands)")
	runREPL(ctx, a, a.reader)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// fail reports err to the user and returns it for the REPL.
func (a *App) fail(ctx context.Context, op string, err error) error {
	a.log.Debug(ctx, "command failed", "command", op, "error", err)
	a.printf("Error: %v\n", err)
	return err
}

// StartAutoBackupWatcher calls MaybeRun every interval until ctx is done.
// Each attempt gets its own timeout so a stuck destination cannot pile up
// ticks.
func (a *App) StartAutoBackupWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.autoBackup(ctx, interval)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) autoBackup(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := a.backups.MaybeRun(ctx)
	if err != nil {
		a.log.Warn(ctx, "automatic backup failed", "error", err)
		return
	}
	if res.Outcome == services.OutcomeSucceeded {
		a.log.Info(ctx, "automatic backup written", "location", res.Location)
	}
}
