package models

import (
	"fmt"
	"strconv"
	"strings"
)

type FrequencyMode string

const (
	FrequencyNever    FrequencyMode = "never"
	FrequencyOnce     FrequencyMode = "once"
	FrequencyPeriodic FrequencyMode = "periodic"

	// DefaultPeriodDays is used when a periodic schedule has no stored period.
	DefaultPeriodDays = 7
)

// Frequency says how often automatic backups are taken. Days is only
// meaningful for FrequencyPeriodic.
type Frequency struct {
	Mode FrequencyMode
	Days int
}

func Never() Frequency { return Frequency{Mode: FrequencyNever} }
func Once() Frequency { return Frequency{Mode: FrequencyOnce} }
func Periodic(days int) Frequency { return Frequency{Mode: FrequencyPeriodic, Days: days} }

// Enabled reports whether automatic backups may run at all.
func (f Frequency) Enabled() bool {
	return f.Mode == FrequencyOnce || f.Mode == FrequencyPeriodic
}

func (f Frequency) String() string {
	if f.Mode == FrequencyPeriodic {
		return fmt.Sprintf("every %d day(s)", f.Days)
	}
	return string(f.Mode)
}

// ParseFrequency accepts "never", "once", "daily", "weekly" or "periodic N"
// (also "every N").
func ParseFrequency(s string) (Frequency, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return Frequency{}, fmt.Errorf("empty frequency")
	}

	switch fields[0] {
	case "never", "off":
		return Never(), nil
	case "once":
		return Once(), nil
	case "daily":
		return Periodic(1), nil
	case "weekly":
		return Periodic(7), nil
	case "periodic", "every":
		if len(fields) < 2 {
			return Periodic(DefaultPeriodDays), nil
		}
		days, err := strconv.Atoi(fields[1])
		if err != nil || days < 1 {
			return Frequency{}, fmt.Errorf("invalid period %q", fields[1])
		}
		return Periodic(days), nil
	}

	return Frequency{}, fmt.Errorf("unknown frequency %q", s)
}
