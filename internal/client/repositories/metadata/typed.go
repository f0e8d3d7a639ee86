package metadata

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// GetString returns the value stored under key and whether it was present.
func GetString(ctx context.Context, r Repository, key string) (string, bool, error) {
	v, err := r.Get(ctx, key)
	if err != nil || v == nil {
		return "", false, err
	}
	return string(v), true, nil
}

func SetString(ctx context.Context, r Repository, key, value string) error {
	return r.Set(ctx, key, []byte(value))
}

// GetInt parses the value under key as a decimal integer.
func GetInt(ctx context.Context, r Repository, key string) (int, bool, error) {
	s, ok, err := GetString(ctx, r, key)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("metadata[%s] is not an integer: %w", key, err)
	}
	return n, true, nil
}

func SetInt(ctx context.Context, r Repository, key string, value int) error {
	return SetString(ctx, r, key, strconv.Itoa(value))
}

// GetTime reads an instant stored by SetTime.
func GetTime(ctx context.Context, r Repository, key string) (time.Time, bool, error) {
	s, ok, err := GetString(ctx, r, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("metadata[%s] is not a timestamp: %w", key, err)
	}
	return t, true, nil
}

// SetTime stores t in UTC with nanosecond precision.
func SetTime(ctx context.Context, r Repository, key string, t time.Time) error {
	return SetString(ctx, r, key, t.UTC().Format(time.RFC3339Nano))
}
