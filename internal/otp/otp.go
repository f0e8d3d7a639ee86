// Package otp implements HMAC-based (RFC 4226) and time-based (RFC 6238)
// one-time password generation.
//
// Output depends only on the key, the counter and the number of digits; the
// package keeps no state. Callers are responsible for supplying valid key
// bytes (usually the Base32-decoded secret of a record).
package otp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultDigits = 6  // Standard 6-digit codes
	DefaultPeriod = 30 // RFC 6238 default time step, seconds

	MinDigits = 6
	MaxDigits = 8
)

var (
	ErrInvalidDigits = errors.New("digits out of range")
	ErrInvalidPeriod = errors.New("time step must be positive")
)

var pow10 = [...]uint32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000}

// GenerateHOTP computes the RFC 4226 code for counter using key as the
// HMAC-SHA1 key. The result is left-padded with zeros to exactly digits
// characters.
func GenerateHOTP(key []byte, counter uint64, digits int) (string, error) {
	if digits < MinDigits || digits > MaxDigits {
		return "", fmt.Errorf("%w: %d", ErrInvalidDigits, digits)
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// dynamic truncation: low nibble of the last byte selects the window
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", digits, code%pow10[digits]), nil
}

// Counter returns the RFC 6238 time-step counter for t. Instants before the
// Unix epoch map to counter 0.
func Counter(t time.Time, period uint64) uint64 {
	sec := t.Unix()
	if sec < 0 || period == 0 {
		return 0
	}
	return uint64(sec) / period
}

// GenerateTOTP computes the code for the time step containing now.
func GenerateTOTP(key []byte, period uint64, digits int, now time.Time) (string, error) {
	if period == 0 {
		return "", ErrInvalidPeriod
	}
	return GenerateHOTP(key, Counter(now, period), digits)
}
