package services

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/authigel/internal/client/models"
	"github.com/dmitrijs2005/authigel/internal/otpauth"
)

// BuildPayload joins the otpauth URI of every record with "\n". Records
// without a stored URI get one built from their fields.
func BuildPayload(records []models.OtpRecord) []byte {
	var buf bytes.Buffer
	for i, r := range records {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(recordURI(r))
	}
	return buf.Bytes()
}

func recordURI(r models.OtpRecord) string {
	if r.RawURL != "" {
		return r.RawURL
	}
	return otpauth.Build(otpauth.Params{Issuer: r.Issuer, Holder: r.Holder, Secret: r.Secret})
}

// PayloadLine is one non-blank line of a payload with its 1-based number.
type PayloadLine struct {
	Number int
	Text   string
}

// SplitPayload returns the non-blank lines of r, trimmed of surrounding
// whitespace (including a trailing "\r").
func SplitPayload(r io.Reader) ([]PayloadLine, error) {
	var out []PayloadLine

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		out = append(out, PayloadLine{Number: n, Text: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return out, nil
}
