package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/authigel/internal/base32x"
	"github.com/dmitrijs2005/authigel/internal/client/models"
	"github.com/dmitrijs2005/authigel/internal/client/storage"
	"github.com/dmitrijs2005/authigel/internal/common"
	"github.com/dmitrijs2005/authigel/internal/logging"
	"github.com/dmitrijs2005/authigel/internal/otp"
	"github.com/dmitrijs2005/authigel/internal/otpauth"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// DefaultQRSize is the PNG edge length used by WriteQR when size <= 0.
const DefaultQRSize = 256

// RecordService manages the OTP records of the vault.
type RecordService struct {
	store Store
	gen   *otp.Generator
	now   func() time.Time
	log   logging.Logger
	newID func() string
}

func NewRecordService(store Store, now func() time.Time, log logging.Logger) *RecordService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logging.Discard()
	}
	return &RecordService{
		store: store,
		gen:   otp.NewGenerator(now),
		now:   now,
		log:   log,
		newID: uuid.NewString,
	}
}

// Add validates the fields, builds the otpauth URI and stores a new record.
// Spaces inside secret are dropped and it is upper-cased.
func (s *RecordService) Add(ctx context.Context, issuer, holder, secret string) (models.OtpRecord, error) {
	issuer = strings.TrimSpace(issuer)
	holder = strings.TrimSpace(holder)
	secret = strings.ToUpper(strings.Join(strings.Fields(secret), ""))

	if issuer == "" {
		return models.OtpRecord{}, common.ErrEmptyIssuer
	}
	if secret == "" {
		return models.OtpRecord{}, common.ErrEmptySecret
	}
	if err := base32x.Validate(secret); err != nil {
		return models.OtpRecord{}, fmt.Errorf("%w: %w", otpauth.ErrInvalidSecret, err)
	}
	secret = strings.TrimRight(secret, "=")

	rec := models.OtpRecord{
		ID:      s.newID(),
		Issuer:  issuer,
		Holder:  holder,
		Secret:  secret,
		RawURL:  otpauth.Build(otpauth.Params{Issuer: issuer, Holder: holder, Secret: secret}),
		AddedAt: s.now(),
	}
	return rec, s.insert(ctx, s.store.Repos(), rec)
}

// AddURI parses an otpauth URI and stores it as a new record. The URI is
// kept verbatim as the record's RawURL.
func (s *RecordService) AddURI(ctx context.Context, uri string) (models.OtpRecord, error) {
	rec, err := s.fromURI(uri)
	if err != nil {
		return models.OtpRecord{}, err
	}
	return rec, s.insert(ctx, s.store.Repos(), rec)
}

func (s *RecordService) fromURI(uri string) (models.OtpRecord, error) {
	uri = strings.TrimSpace(uri)
	f, err := otpauth.Parse(uri)
	if err != nil {
		return models.OtpRecord{}, err
	}
	return models.OtpRecord{
		ID:      s.newID(),
		Issuer:  f.Issuer,
		Holder:  f.Holder,
		Secret:  f.Secret,
		RawURL:  uri,
		AddedAt: s.now(),
	}, nil
}

func (s *RecordService) insert(ctx context.Context, repos storage.Repositories, rec models.OtpRecord) error {
	if err := repos.Records.Add(ctx, rec); err != nil {
		return fmt.Errorf("saving error: %w", err)
	}
	s.log.Debug(ctx, "record added", "id", rec.ID, "issuer", rec.Issuer)
	return nil
}

func (s *RecordService) List(ctx context.Context) ([]models.OtpRecord, error) {
	recs, err := s.store.Repos().Records.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing records: %w", err)
	}
	return recs, nil
}

func (s *RecordService) Get(ctx context.Context, id string) (models.OtpRecord, error) {
	return s.store.Repos().Records.GetByID(ctx, id)
}

// Delete removes a record. A missing id matches common.ErrorNotFound.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := s.store.Repos().Records.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("error deleting record %s: %w", id, err)
	}
	s.log.Debug(ctx, "record deleted", "id", id)
	return nil
}

// ReplaceAll swaps the whole collection in one transaction.
func (s *RecordService) ReplaceAll(ctx context.Context, recs []models.OtpRecord) error {
	return s.store.WithTx(ctx, func(ctx context.Context, r storage.Repositories) error {
		if err := r.Records.DeleteAll(ctx); err != nil {
			return err
		}
		for _, rec := range recs {
			if err := r.Records.Add(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordCode is the live code of one record. Err is set when no code can be
// produced, e.g. for a record with a corrupt secret.
type RecordCode struct {
	Record models.OtpRecord
	Code   otp.Code
	Err    error
}

// Codes renders the current TOTP of every record.
func (s *RecordService) Codes(ctx context.Context) ([]RecordCode, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RecordCode, 0, len(recs))
	for _, r := range recs {
		code, err := s.code(r)
		out = append(out, RecordCode{Record: r, Code: code, Err: err})
	}
	return out, nil
}

func (s *RecordService) code(r models.OtpRecord) (otp.Code, error) {
	digits, period := otp.DefaultDigits, otp.DefaultPeriod
	if r.RawURL != "" {
		if f, err := otpauth.Parse(r.RawURL); err == nil {
			digits, period = f.Digits, f.Period
		}
	}

	key, err := base32x.Decode(r.Secret)
	if err != nil {
		return otp.Code{}, err
	}
	defer common.WipeByteArray(key)

	return s.gen.Code(key, uint64(period), digits)
}

// Export writes the plain (unencrypted) export: one otpauth URI per line.
func (s *RecordService) Export(ctx context.Context, w io.Writer) (int, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	payload := BuildPayload(recs)
	defer common.WipeByteArray(payload)

	if _, err := w.Write(payload); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(recs), nil
}

// LineError reports a payload line that could not be imported. Its message
// leaves out the line itself, which may carry a secret.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, reason(e.Err)) }

func (e LineError) Unwrap() error { return e.Err }

// ImportReport summarises an import or restore.
type ImportReport struct {
	Total    int
	Added    int
	Failures []LineError
}

// Import adds every otpauth URI found in r, one at a time. A bad line is
// reported and skipped; it does not abort the rest.
func (s *RecordService) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	lines, err := SplitPayload(r)
	if err != nil {
		return ImportReport{}, err
	}
	return s.importLines(ctx, lines), nil
}

func (s *RecordService) importLines(ctx context.Context, lines []PayloadLine) ImportReport {
	rep := ImportReport{Total: len(lines)}
	for _, l := range lines {
		rec, err := s.fromURI(l.Text)
		if err == nil {
			err = s.insert(ctx, s.store.Repos(), rec)
		}
		if err != nil {
			rep.Failures = append(rep.Failures, LineError{Line: l.Number, Err: err})
			s.log.Warn(ctx, "import line skipped", "line", l.Number, "reason", reason(err))
			continue
		}
		rep.Added++
	}
	return rep
}

// reason strips the offending input from parse errors so secrets stay out
// of logs.
func reason(err error) error {
	var pe *otpauth.ParseError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// WriteQR writes a PNG QR code of the record's otpauth URI to w.
func (s *RecordService) WriteQR(ctx context.Context, id string, size int, w io.Writer) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = DefaultQRSize
	}

	png, err := qrcode.Encode(recordURI(rec), qrcode.Medium, size)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	if _, err := w.Write(png); err != nil {
		return fmt.Errorf("write qr: %w", err)
	}
	return nil
}
