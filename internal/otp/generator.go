package otp

import (
	"math"
	"time"
)

// Code is a rendered TOTP value together with the time left before it
// rolls over.
type Code struct {
	Value     string
	Remaining time.Duration
}

// Generator renders live TOTP codes against an injectable clock.
type Generator struct {
	now func() time.Time
}

// NewGenerator returns a Generator reading time from now. A nil now uses
// time.Now.
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Code computes the current code for key.
func (g *Generator) Code(key []byte, period uint64, digits int) (Code, error) {
	t := g.now()
	value, err := GenerateTOTP(key, period, digits, t)
	if err != nil {
		return Code{}, err
	}

	// Whole seconds only; period may be far beyond what a Duration holds.
	rem := period - uint64(max(t.Unix(), 0))%period
	remaining := time.Duration(math.MaxInt64)
	if rem <= uint64(math.MaxInt64/int64(time.Second)) {
		remaining = time.Duration(rem) * time.Second
	}

	return Code{Value: value, Remaining: remaining}, nil
}
