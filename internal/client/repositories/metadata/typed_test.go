package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedAccessors(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, ok, err := GetString(ctx, r, KeyBackupMode)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetString(ctx, r, KeyBackupMode, "periodic"))
	s, ok, err := GetString(ctx, r, KeyBackupMode)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "periodic", s)

	require.NoError(t, SetInt(ctx, r, KeyPeriodDays, 14))
	n, ok, err := GetInt(ctx, r, KeyPeriodDays)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 14, n)

	ts := time.Date(2024, 6, 1, 23, 59, 59, 123, time.FixedZone("X", 3600))
	require.NoError(t, SetTime(ctx, r, KeyLastBackupAt, ts))
	got, ok, err := GetTime(ctx, r, KeyLastBackupAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, ts.Equal(got))
}

func TestTypedAccessors_Malformed(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, SetString(ctx, r, KeyPeriodDays, "seven"))
	_, _, err := GetInt(ctx, r, KeyPeriodDays)
	assert.ErrorContains(t, err, "not an integer")

	require.NoError(t, SetString(ctx, r, KeyLastBackupAt, "yesterday"))
	_, _, err = GetTime(ctx, r, KeyLastBackupAt)
	assert.ErrorContains(t, err, "not a timestamp")
}
