package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/authigel/internal/backup/envelope"
	"github.com/dmitrijs2005/authigel/internal/backup/retention"
	"github.com/dmitrijs2005/authigel/internal/client/backupstore"
	"github.com/dmitrijs2005/authigel/internal/client/models"
	"github.com/dmitrijs2005/authigel/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authigel/internal/client/storage"
	"github.com/dmitrijs2005/authigel/internal/common"
	"github.com/dmitrijs2005/authigel/internal/logging"
	"github.com/dmitrijs2005/authigel/internal/timex"
)

// Outcome is the end state of a backup cycle.
type Outcome string

const (
	OutcomeDisabled  Outcome = "disabled"
	OutcomeThrottled Outcome = "throttled"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Result describes a finished backup cycle. Location and Pruned are only set
// on success.
type Result struct {
	Outcome  Outcome
	Location string
	Records  int
	Pruned   []string
	At       time.Time
}

// LastBackup is the bookkeeping of the most recent successful cycle.
type LastBackup struct {
	At       time.Time
	Location string
}

// BackupService takes encrypted backups of the vault and restores them.
// At most one cycle runs at a time per service.
type BackupService struct {
	store    Store
	dest     backupstore.Store
	keystore Keystore
	records  *RecordService
	sealer   Sealer
	keep     int
	now      func() time.Time
	loc      *time.Location
	log      logging.Logger

	// sem guards the whole cycle, throttle check and bookkeeping included.
	sem chan struct{}
}

type BackupOption func(*BackupService)

func WithKeep(n int) BackupOption { return func(s *BackupService) { s.keep = n } }
func WithClock(now func() time.Time) BackupOption { return func(s *BackupService) { s.now = now } }
func WithLocation(l *time.Location) BackupOption { return func(s *BackupService) { s.loc = l } }
func WithSealer(c Sealer) BackupOption { return func(s *BackupService) { s.sealer = c } }
func WithLogger(l logging.Logger) BackupOption { return func(s *BackupService) { s.log = l } }

func NewBackupService(store Store, dest backupstore.Store, ks Keystore, records *RecordService, opts ...BackupOption) *BackupService {
	s := &BackupService{
		store:    store,
		dest:     dest,
		keystore: ks,
		records:  records,
		sealer:   envelope.New(),
		keep:     retention.DefaultKeep,
		now:      time.Now,
		loc:      time.Local,
		log:      logging.Discard(),
		sem:      make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "backup")
	return s
}

// lock waits for the running cycle, if any, to finish. Giving up on the
// wait reports common.ErrBackupInProgress together with the context error.
func (s *BackupService) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", common.ErrBackupInProgress, ctx.Err())
	}
}

func (s *BackupService) unlock() { <-s.sem }

// MaybeRun runs a cycle unless the configured frequency says not to:
// never disables it, once runs only while no backup exists, and
// periodic(d) runs when the local date of the last backup plus d days is
// today or earlier.
// periodic(1) is the daily guard; a larger d throttles for d days.
func (s *BackupService) MaybeRun(ctx context.Context) (Result, error) {
	if err := s.lock(ctx); err != nil {
		return Result{}, err
	}
	defer s.unlock()

	repos := s.store.Repos()
	freq, err := s.frequency(ctx, repos.Metadata)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	if !freq.Enabled() {
		s.log.Debug(ctx, "backup disabled")
		return Result{Outcome: OutcomeDisabled}, nil
	}

	last, ok, err := metadata.GetTime(ctx, repos.Metadata, metadata.KeyLastBackupAt)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	if ok && !s.due(freq, last) {
		s.log.Debug(ctx, "backup throttled", "last", last, "frequency", freq.String())
		return Result{Outcome: OutcomeThrottled, At: last}, nil
	}

	return s.run(ctx)
}

func (s *BackupService) due(freq models.Frequency, last time.Time) bool {
	switch freq.Mode {
	case models.FrequencyPeriodic:
		days := freq.Days
		if days < 1 {
			days = 1
		}
		lastDay := timex.StartOfDay(last, s.loc)
		today := timex.StartOfDay(s.now(), s.loc)
		return !lastDay.AddDate(0, 0, days).After(today)
	default:
		return false
	}
}

// RunNow runs a cycle regardless of frequency and throttling.
func (s *BackupService) RunNow(ctx context.Context) (Result, error) {
	if err := s.lock(ctx); err != nil {
		return Result{}, err
	}
	defer s.unlock()

	return s.run(ctx)
}

// run executes one cycle. The caller holds the semaphore. Bookkeeping is
// written only after the write and the pruning both succeed.
func (s *BackupService) run(ctx context.Context) (Result, error) {
	res, err := s.cycle(ctx)
	if err != nil {
		s.log.Error(ctx, "backup failed", "error", err)
		return Result{Outcome: OutcomeFailed}, err
	}
	s.log.Info(ctx, "backup written", "location", res.Location, "records", res.Records, "pruned", len(res.Pruned))
	return res, nil
}

func (s *BackupService) cycle(ctx context.Context) (Result, error) {
	repos := s.store.Repos()

	recs, err := repos.Records.GetAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load records: %w", err)
	}

	password, err := s.storedPassword(ctx, repos.Metadata)
	if err != nil {
		return Result{}, err
	}

	payload := BuildPayload(recs)
	data, err := s.sealer.Encrypt(password, payload)
	common.WipeByteArray(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encrypt backup: %w", err)
	}

	at := s.now()
	location, err := s.dest.Write(ctx, retention.FileName(at.In(s.loc)), data)
	if err != nil {
		return Result{}, fmt.Errorf("write backup: %w", err)
	}

	pruned, err := s.prune(ctx, location)
	if err != nil {
		return Result{}, fmt.Errorf("prune backups: %w", err)
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, r storage.Repositories) error {
		if err := metadata.SetTime(ctx, r.Metadata, metadata.KeyLastBackupAt, at); err != nil {
			return err
		}
		return metadata.SetString(ctx, r.Metadata, metadata.KeyLastBackupLocation, location)
	})
	if err != nil {
		return Result{}, fmt.Errorf("record backup: %w", err)
	}

	return Result{
		Outcome:  OutcomeSucceeded,
		Location: location,
		Records:  len(recs),
		Pruned:   pruned,
		At:       at,
	}, nil
}

// prune deletes automatic backups beyond the keep count. The artifact just
// written is never deleted, even if the destination reports it as older
// than others.
func (s *BackupService) prune(ctx context.Context, written string) ([]string, error) {
	artifacts, err := s.dest.List(ctx)
	if err != nil {
		return nil, err
	}

	var pruned []string
	for _, a := range retention.SelectForDeletion(artifacts, s.keep) {
		if a.Location == written {
			continue
		}
		if err := s.dest.Delete(ctx, a.Location); err != nil && !errors.Is(err, backupstore.ErrNotFound) {
			return pruned, err
		}
		s.log.Debug(ctx, "pruned backup", "location", a.Location)
		pruned = append(pruned, a.Location)
	}
	return pruned, nil
}

// storedPassword returns the keystore-sealed backup password. The caller
// passes it on to the sealer, which wipes it.
func (s *BackupService) storedPassword(ctx context.Context, md metadata.Repository) ([]byte, error) {
	blob, err := md.Get(ctx, metadata.KeyBackupPassword)
	if err != nil {
		return nil, fmt.Errorf("load backup password: %w", err)
	}
	if len(blob) == 0 {
		return nil, common.ErrNoPasswordConfigured
	}

	password, err := s.keystore.Decrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("unseal backup password: %w", err)
	}
	return password, nil
}

// SetPassword seals password with the keystore and stores it. password is
// wiped.
func (s *BackupService) SetPassword(ctx context.Context, password []byte) error {
	defer common.WipeByteArray(password)

	if len(password) == 0 {
		return errors.New("backup password must not be empty")
	}

	blob, err := s.keystore.Encrypt(password)
	if err != nil {
		return fmt.Errorf("seal backup password: %w", err)
	}
	if err := s.store.Repos().Metadata.Set(ctx, metadata.KeyBackupPassword, blob); err != nil {
		return err
	}
	s.log.Info(ctx, "backup password stored")
	return nil
}

// ClearPassword forgets the stored password and destroys the device key.
func (s *BackupService) ClearPassword(ctx context.Context) error {
	if err := s.store.Repos().Metadata.Delete(ctx, metadata.KeyBackupPassword); err != nil {
		return err
	}
	if err := s.keystore.Clear(); err != nil {
		return fmt.Errorf("clear keystore: %w", err)
	}
	s.log.Info(ctx, "backup password cleared")
	return nil
}

func (s *BackupService) HasPassword(ctx context.Context) (bool, error) {
	return s.store.Repos().Metadata.Has(ctx, metadata.KeyBackupPassword)
}

// LastBackup returns false when no backup has succeeded yet.
func (s *BackupService) LastBackup(ctx context.Context) (LastBackup, bool, error) {
	md := s.store.Repos().Metadata

	at, ok, err := metadata.GetTime(ctx, md, metadata.KeyLastBackupAt)
	if err != nil || !ok {
		return LastBackup{}, false, err
	}
	loc, _, err := metadata.GetString(ctx, md, metadata.KeyLastBackupLocation)
	if err != nil {
		return LastBackup{}, false, err
	}
	return LastBackup{At: at.In(s.loc), Location: loc}, true, nil
}

// Frequency reads the stored schedule. Missing or unknown modes read as
// never; a periodic schedule without a period uses DefaultPeriodDays.
func (s *BackupService) Frequency(ctx context.Context) (models.Frequency, error) {
	return s.frequency(ctx, s.store.Repos().Metadata)
}

func (s *BackupService) frequency(ctx context.Context, md metadata.Repository) (models.Frequency, error) {
	mode, _, err := metadata.GetString(ctx, md, metadata.KeyBackupMode)
	if err != nil {
		return models.Frequency{}, err
	}

	switch models.FrequencyMode(mode) {
	case models.FrequencyOnce:
		return models.Once(), nil
	case models.FrequencyPeriodic:
		days, ok, err := metadata.GetInt(ctx, md, metadata.KeyPeriodDays)
		if err != nil || !ok || days < 1 {
			days = models.DefaultPeriodDays
		}
		return models.Periodic(days), nil
	default:
		return models.Never(), nil
	}
}

// SetFrequency stores f. The period is only kept for periodic schedules.
func (s *BackupService) SetFrequency(ctx context.Context, f models.Frequency) error {
	switch f.Mode {
	case models.FrequencyNever, models.FrequencyOnce:
	case models.FrequencyPeriodic:
		if f.Days < 1 {
			return fmt.Errorf("invalid period %d", f.Days)
		}
	default:
		return fmt.Errorf("unknown frequency mode %q", f.Mode)
	}

	return s.store.WithTx(ctx, func(ctx context.Context, r storage.Repositories) error {
		if err := metadata.SetString(ctx, r.Metadata, metadata.KeyBackupMode, string(f.Mode)); err != nil {
			return err
		}
		if f.Mode == models.FrequencyPeriodic {
			return metadata.SetInt(ctx, r.Metadata, metadata.KeyPeriodDays, f.Days)
		}
		return r.Metadata.Delete(ctx, metadata.KeyPeriodDays)
	})
}

// Restore decrypts an envelope read from r and adds its records one at a
// time. With a nil password the stored one is used; a supplied password
// that opens the backup is remembered for future cycles. Decryption errors
// (envelope.ErrWrongPassword, envelope.ErrInvalidFormat) leave the vault
// untouched. password is wiped.
func (s *BackupService) Restore(ctx context.Context, r io.Reader, password []byte) (ImportReport, error) {
	defer common.WipeByteArray(password)

	data, err := io.ReadAll(r)
	if err != nil {
		return ImportReport{}, fmt.Errorf("read backup: %w", err)
	}
	return s.restore(ctx, data, password)
}

// RestoreLatest restores the backup recorded by the last successful cycle.
func (s *BackupService) RestoreLatest(ctx context.Context, password []byte) (ImportReport, error) {
	defer common.WipeByteArray(password)

	last, ok, err := s.LastBackup(ctx)
	if err != nil {
		return ImportReport{}, err
	}
	if !ok || last.Location == "" {
		return ImportReport{}, fmt.Errorf("no previous backup: %w", common.ErrorNotFound)
	}

	data, err := s.dest.Read(ctx, last.Location)
	if err != nil {
		return ImportReport{}, fmt.Errorf("read backup: %w", err)
	}
	return s.restore(ctx, data, password)
}

func (s *BackupService) restore(ctx context.Context, data, password []byte) (ImportReport, error) {
	supplied := len(password) > 0

	var remember []byte
	if supplied {
		remember = bytes.Clone(password)
		defer common.WipeByteArray(remember)
		password = bytes.Clone(password)
	} else {
		pw, err := s.storedPassword(ctx, s.store.Repos().Metadata)
		if err != nil {
			return ImportReport{}, err
		}
		password = pw
	}

	plaintext, err := s.sealer.Decrypt(password, data)
	if err != nil {
		s.log.Warn(ctx, "restore rejected", "error", err)
		return ImportReport{}, err
	}
	defer common.WipeByteArray(plaintext)

	lines, err := SplitPayload(bytes.NewReader(plaintext))
	if err != nil {
		return ImportReport{}, err
	}
	rep := s.records.importLines(ctx, lines)
	s.log.Info(ctx, "backup restored", "added", rep.Added, "total", rep.Total)

	if supplied {
		if err := s.SetPassword(ctx, remember); err != nil {
			s.log.Warn(ctx, "could not remember backup password", "error", err)
		}
	}
	return rep, nil
}
