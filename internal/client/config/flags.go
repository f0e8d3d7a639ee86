package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/authigel/internal/flagx"
)

var knownFlags = []string{"-d", "-k", "-b", "-n", "-i", "-l", "-tz", "-s3-bucket"}

// parseFlags overlays cfg with the command-line flags it knows about.
// Other arguments (such as -c) are filtered out first with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path of the vault database")
	fs.StringVar(&cfg.KeystorePath, "k", cfg.KeystorePath, "path of the device key file")
	fs.StringVar(&cfg.BackupDir, "b", cfg.BackupDir, "local backup directory")
	fs.IntVar(&cfg.Keep, "n", cfg.Keep, "number of automatic backups to keep")
	fs.DurationVar(&cfg.CheckInterval, "i", cfg.CheckInterval, "auto-backup check interval")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "time zone for calendar-day throttling")
	fs.StringVar(&cfg.S3.Bucket, "s3-bucket", cfg.S3.Bucket, "S3 bucket for backups")

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
