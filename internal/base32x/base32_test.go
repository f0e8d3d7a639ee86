package base32x

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_AllLengths(t *testing.T) {
	for n := 0; n <= 64; n++ {
		b := make([]byte, n)
		_, err := rand.Read(b)
		require.NoError(t, err)

		s := Encode(b)
		assert.NotContains(t, s, "=")

		got, err := Decode(s)
		require.NoError(t, err, "length %d", n)
		if !bytes.Equal(b, got) {
			t.Fatalf("round trip mismatch at length %d", n)
		}
	}
}

func TestEncode_KnownValue(t *testing.T) {
	assert.Equal(t, "JBSWY3DPEHPK3PXP", Encode([]byte("Hello!\xde\xad\xbe\xef")))
}

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"unpadded", "MZXW6", "foo"},
		{"padded", "MZXW6===", "foo"},
		{"lower case", "mzxw6", "foo"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestDecode_InvalidEncoding(t *testing.T) {
	for _, in := range []string{"MZXW1", "MZ XW6", "MZXW6\n", "ABC!", "0OO0", "A"} {
		_, err := Decode(in)
		assert.ErrorIs(t, err, ErrInvalidEncoding, "input %q", in)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("JBSWY3DPEHPK3PXP"))
	assert.ErrorIs(t, Validate("JBSWY3DPEHPK3PX8"), ErrInvalidEncoding)
}

func TestRandomSecret(t *testing.T) {
	a, err := RandomSecret(DefaultSecretSize)
	require.NoError(t, err)
	b, err := RandomSecret(DefaultSecretSize)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.NoError(t, Validate(a))
}
