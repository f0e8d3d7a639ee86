// Package retention decides which automatic backups to delete.
//
// Only artifacts following the naming convention (see FileName) are ever
// candidates; destinations are expected to filter with IsBackupName before
// handing artifacts over.
package retention

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/authigel/internal/common"
)

const (
	// NamePrefix marks files produced by the backup cycle.
	NamePrefix = common.AppName + "_AutoBackup_"
	// NameSuffix is the extension of backup files.
	NameSuffix = ".txt"

	DefaultKeep = 5

	timestampLayout = "2006-01-02_15-04-05"
)

// Artifact is one backup found at a destination.
type Artifact struct {
	Location string
	ModTime  time.Time
}

// FileName returns the backup file name for an artifact created at t.
func FileName(t time.Time) string {
	return NamePrefix + t.Format(timestampLayout) + NameSuffix
}

// NumberedName returns the n-th alternative for a FileName that is already
// taken: "..._2.txt", "..._3.txt" and so on. n below 2 returns name.
func NumberedName(name string, n int) string {
	if n < 2 {
		return name
	}
	return strings.TrimSuffix(name, NameSuffix) + "_" + strconv.Itoa(n) + NameSuffix
}

// IsBackupName reports whether name was produced by FileName.
func IsBackupName(name string) bool {
	return strings.HasPrefix(name, NamePrefix)
}

// SelectForDeletion orders artifacts newest first, keeps the first keep of
// them and returns the rest. Equal timestamps keep their discovery order.
// The input slice is not modified.
func SelectForDeletion(artifacts []Artifact, keep int) []Artifact {
	if keep < 0 {
		keep = 0
	}
	if len(artifacts) <= keep {
		return nil
	}

	sorted := slices.Clone(artifacts)
	slices.SortStableFunc(sorted, func(a, b Artifact) int {
		return b.ModTime.Compare(a.ModTime)
	})

	return sorted[keep:]
}
