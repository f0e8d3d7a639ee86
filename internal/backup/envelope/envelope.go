// Package envelope implements the encrypted AuthIgel backup file format.
//
// Layout (all offsets in bytes):
//
//	0   8   magic "AUTHIGEL"
//	8   1   version (1)
//	9   16  PBKDF2 salt
//	25  4   PBKDF2 iterations, big-endian uint32
//	29  12  AES-GCM nonce
//	41  N   ciphertext followed by the 16-byte GCM tag
//
// The key is derived with PBKDF2-HMAC-SHA256 (256-bit output). Every call to
// Encrypt draws a fresh salt and nonce. Decrypt honours the iteration count
// stored in the file, which lets older or newer work factors be read, but
// refuses anything below MinIterations.
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dmitrijs2005/authigel/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	Magic   = "AUTHIGEL"
	Version = 1

	SaltSize  = 16
	NonceSize = 12
	KeySize   = 32
	TagSize   = 16

	// Iterations is the work factor used for every new backup.
	Iterations = 150_000
	// MinIterations is the lowest work factor accepted on decrypt.
	MinIterations = 10_000

	HeaderSize = len(Magic) + 1 + SaltSize + 4 + NonceSize
)

var (
	ErrInvalidFormat = errors.New("invalid backup format")
	ErrWrongPassword = errors.New("wrong password or corrupted backup")
)

// FormatError describes why an envelope was rejected. It matches
// ErrInvalidFormat with errors.Is.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return ErrInvalidFormat.Error() + ": " + e.Reason
}

func (e *FormatError) Is(target error) bool { return target == ErrInvalidFormat }

// KDF derives keyLen bytes from password and salt.
type KDF func(password, salt []byte, iterations, keyLen int) []byte

// AEADFactory builds the authenticated cipher for a derived key.
type AEADFactory func(key []byte) (cipher.AEAD, error)

// PBKDF2SHA256 is the default KDF.
func PBKDF2SHA256(password, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key(password, salt, iterations, keyLen, sha256.New)
}

// NewAESGCM is the default AEAD.
func NewAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Header is the fixed-size prefix of an envelope.
type Header struct {
	Version    byte
	Salt       []byte
	Iterations uint32
	Nonce      []byte
}

// MarshalBinary encodes h in wire order.
func (h Header) MarshalBinary() ([]byte, error) {
	if len(h.Salt) != SaltSize || len(h.Nonce) != NonceSize {
		return nil, &FormatError{Reason: "bad salt or nonce length"}
	}

	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, Magic...)
	buf = append(buf, h.Version)
	buf = append(buf, h.Salt...)
	buf = binary.BigEndian.AppendUint32(buf, h.Iterations)
	buf = append(buf, h.Nonce...)
	return buf, nil
}

// ParseHeader validates the envelope prefix and returns it together with the
// sealed payload that follows it.
func ParseHeader(data []byte) (Header, []byte, error) {
	if len(data) < HeaderSize+1 {
		return Header{}, nil, &FormatError{Reason: "too small"}
	}
	if !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return Header{}, nil, &FormatError{Reason: "bad magic"}
	}

	off := len(Magic)
	h := Header{Version: data[off]}
	if h.Version != Version {
		return Header{}, nil, &FormatError{Reason: fmt.Sprintf("unsupported version %d", h.Version)}
	}
	off++

	h.Salt = data[off : off+SaltSize]
	off += SaltSize

	h.Iterations = binary.BigEndian.Uint32(data[off : off+4])
	if h.Iterations < MinIterations || h.Iterations > math.MaxInt32 {
		return Header{}, nil, &FormatError{Reason: fmt.Sprintf("invalid iteration count %d", h.Iterations)}
	}
	off += 4

	h.Nonce = data[off : off+NonceSize]
	off += NonceSize

	return h, data[off:], nil
}

// Codec seals and opens envelopes. The zero value is not usable; build one
// with New.
type Codec struct {
	kdf  KDF
	aead AEADFactory
	rand io.Reader
}

type Option func(*Codec)

func WithKDF(kdf KDF) Option { return func(c *Codec) { c.kdf = kdf } }
func WithAEAD(f AEADFactory) Option { return func(c *Codec) { c.aead = f } }
func WithRandom(r io.Reader) Option { return func(c *Codec) { c.rand = r } }

// New returns a Codec using PBKDF2-HMAC-SHA256, AES-256-GCM and crypto/rand
// unless overridden.
func New(opts ...Option) *Codec {
	c := &Codec{kdf: PBKDF2SHA256, aead: NewAESGCM, rand: rand.Reader}
	for _, o := range opts {
		o(c)
	}
	return c
}

var defaultCodec = New()

// Encrypt seals plaintext with the default Codec.
func Encrypt(password, plaintext []byte) ([]byte, error) {
	return defaultCodec.Encrypt(password, plaintext)
}

// Decrypt opens data with the default Codec.
func Decrypt(password, data []byte) ([]byte, error) {
	return defaultCodec.Decrypt(password, data)
}

// Encrypt derives a key from password with a fresh salt and seals plaintext
// under a fresh nonce. password is wiped before Encrypt returns.
func (c *Codec) Encrypt(password, plaintext []byte) ([]byte, error) {
	defer common.WipeByteArray(password)

	h := Header{
		Version:    Version,
		Salt:       make([]byte, SaltSize),
		Iterations: Iterations,
		Nonce:      make([]byte, NonceSize),
	}
	if _, err := io.ReadFull(c.rand, h.Salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := io.ReadFull(c.rand, h.Nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	aead, err := c.cipherFor(password, h)
	if err != nil {
		return nil, err
	}

	out, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return aead.Seal(out, h.Nonce, plaintext, nil), nil
}

// Decrypt validates data and returns the plaintext. A failed tag check is
// reported as ErrWrongPassword; structural problems as ErrInvalidFormat.
// password is wiped before Decrypt returns.
func (c *Codec) Decrypt(password, data []byte) ([]byte, error) {
	defer common.WipeByteArray(password)

	h, sealed, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	if len(sealed) < TagSize {
		return nil, &FormatError{Reason: "truncated ciphertext"}
	}

	aead, err := c.cipherFor(password, h)
	if err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	if len(sealed) < aead.Overhead() {
		return nil, &FormatError{Reason: "truncated ciphertext"}
	}

	plaintext, err := aead.Open(nil, h.Nonce, sealed, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func (c *Codec) cipherFor(password []byte, h Header) (cipher.AEAD, error) {
	key := c.kdf(password, h.Salt, int(h.Iterations), KeySize)
	defer common.WipeByteArray(key)

	aead, err := c.aead(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if aead.NonceSize() != NonceSize {
		return nil, fmt.Errorf("init cipher: nonce size %d", aead.NonceSize())
	}
	return aead, nil
}
