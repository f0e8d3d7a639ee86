// Package otpauth parses and builds otpauth:// key URIs.
//
// URI layout:
//
//	otpauth://totp/{Issuer}:{Holder}?secret={Base32}&issuer={Issuer}&algorithm=SHA1&digits=6&period=30
//
// The label is split on its first colon only, so an issuer that itself
// contains a colon cannot be told apart from a holder that starts with one.
// Other authenticator apps share this convention and it is kept as is.
package otpauth

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/authigel/internal/base32x"
)

const (
	Scheme = "otpauth"

	TypeTOTP = "totp"
	TypeHOTP = "hotp"

	DefaultAlgorithm = "SHA1"
	DefaultDigits    = 6
	DefaultPeriod    = 30
	// MaxPeriod caps the time step at one day; larger values fall back to
	// DefaultPeriod.
	MaxPeriod = 24 * 60 * 60
)

var (
	ErrNotOtpAuthURL = errors.New("not an otpauth url")
	ErrMissingSecret = errors.New("missing secret")
	ErrInvalidSecret = errors.New("invalid secret")
)

// ParseError keeps the rejected input next to the reason so the caller can
// show it back to the user for correction.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Fields is the structured content of an otpauth URI.
type Fields struct {
	Type      string
	Issuer    string
	Holder    string
	Secret    string // upper-case Base32, no padding
	Algorithm string
	Digits    int
	Period    int
}

// Params are the inputs of Build. Zero-valued optional fields receive the
// RFC 6238 defaults.
type Params struct {
	Issuer    string
	Holder    string
	Secret    string
	Algorithm string // optional, defaults to SHA1
	Digits    int    // optional, defaults to 6
	Period    int    // optional, defaults to 30
}

// WithDefaults returns a copy with defaults applied to zero-valued fields.
func (p Params) WithDefaults() Params {
	if p.Algorithm == "" {
		p.Algorithm = DefaultAlgorithm
	}
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	return p
}

// Parse extracts the record fields from raw.
func Parse(raw string) (Fields, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != Scheme {
		return Fields{}, &ParseError{Input: raw, Err: ErrNotOtpAuthURL}
	}

	label := strings.TrimPrefix(u.Path, "/")

	var f Fields
	f.Type = strings.ToLower(u.Host)
	if issuer, holder, ok := strings.Cut(label, ":"); ok {
		f.Issuer, f.Holder = issuer, holder
	} else {
		f.Holder = label
	}

	q := u.Query()
	if q.Has("issuer") {
		f.Issuer = q.Get("issuer")
	}

	f.Secret = strings.ToUpper(q.Get("secret"))
	if f.Secret == "" {
		return Fields{}, &ParseError{Input: raw, Err: ErrMissingSecret}
	}
	if err := base32x.Validate(f.Secret); err != nil {
		return Fields{}, &ParseError{Input: raw, Err: fmt.Errorf("%w: %w", ErrInvalidSecret, err)}
	}

	f.Algorithm = strings.ToUpper(q.Get("algorithm"))
	if f.Algorithm == "" {
		f.Algorithm = DefaultAlgorithm
	}
	f.Digits = positiveInt(q.Get("digits"), DefaultDigits, math.MaxInt)
	f.Period = positiveInt(q.Get("period"), DefaultPeriod, MaxPeriod)

	return f, nil
}

// Build formats p as a TOTP key URI. It does not validate its input beyond
// what escaping requires.
func Build(p Params) string {
	p = p.WithDefaults()

	label := url.PathEscape(p.Issuer) + ":" + url.PathEscape(p.Holder)

	var b strings.Builder
	b.WriteString(Scheme + "://" + TypeTOTP + "/")
	b.WriteString(label)
	b.WriteString("?secret=" + url.QueryEscape(p.Secret))
	b.WriteString("&issuer=" + url.QueryEscape(p.Issuer))
	b.WriteString("&algorithm=" + url.QueryEscape(p.Algorithm))
	b.WriteString("&digits=" + strconv.Itoa(p.Digits))
	b.WriteString("&period=" + strconv.Itoa(p.Period))

	return b.String()
}

func positiveInt(s string, def, limit int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > limit {
		return def
	}
	return n
}
