// Package base32x is the RFC 4648 Base32 codec used for OTP secrets.
//
// Encoding never emits '=' padding. Decoding accepts input with or without
// padding and in either letter case; every other character outside the
// alphabet A-Z2-7 is rejected with ErrInvalidEncoding.
package base32x

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

// DefaultSecretSize is the RFC 4226 recommended secret length (160 bits).
const DefaultSecretSize = 20

var ErrInvalidEncoding = errors.New("invalid base32 encoding")

var enc = base32.StdEncoding.WithPadding(base32.NoPadding)

// Encode returns the unpadded Base32 form of b.
func Encode(b []byte) string {
	return enc.EncodeToString(b)
}

// Decode parses Base32 text into bytes.
func Decode(s string) ([]byte, error) {
	norm, err := normalize(s)
	if err != nil {
		return nil, err
	}

	b, err := enc.DecodeString(norm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return b, nil
}

// Validate reports whether s decodes cleanly.
func Validate(s string) error {
	_, err := Decode(s)
	return err
}

// RandomSecret returns a fresh Base32 secret made of size random bytes.
func RandomSecret(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return Encode(b), nil
}

// normalize upper-cases s, strips trailing padding and checks the alphabet.
// The stdlib decoder silently skips CR/LF, so the check runs here.
func normalize(s string) (string, error) {
	s = strings.TrimRight(strings.ToUpper(s), "=")
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= '2' && c <= '7') {
			continue
		}
		return "", fmt.Errorf("%w: illegal character %q at offset %d", ErrInvalidEncoding, c, i)
	}
	return s, nil
}
