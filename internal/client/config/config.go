package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/authigel/internal/backup/retention"
	"github.com/dmitrijs2005/authigel/internal/common"
	"github.com/dmitrijs2005/authigel/internal/logging"
)

var ErrInvalidConfig = errors.New("invalid config")

// S3 describes an optional S3-compatible backup destination. Credentials
// left empty fall back to the default AWS credential chain.
type S3 struct {
	Bucket    string `env:"BUCKET"`
	Prefix    string `env:"PREFIX"`
	Region    string `env:"REGION"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
}

// Enabled reports whether backups should go to S3.
func (s S3) Enabled() bool { return s.Bucket != "" }

// Config holds runtime settings for the AuthIgel CLI.
type Config struct {
	DBPath        string        `env:"DB_PATH"`
	KeystorePath  string        `env:"KEYSTORE_PATH"`
	BackupDir     string        `env:"BACKUP_DIR"`
	Keep          int           `env:"KEEP"`
	CheckInterval time.Duration `env:"CHECK_INTERVAL"`
	LogLevel      string        `env:"LOG_LEVEL"`
	Timezone      string        `env:"TIMEZONE"`
	S3            S3            `envPrefix:"S3_"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DBPath = "authigel.db"
	c.KeystorePath = "authigel.key"
	c.BackupDir = common.BackupFolderName
	c.Keep = retention.DefaultKeep
	c.CheckInterval = time.Hour
	c.LogLevel = "info"
}

// Validate checks the values that cannot be defaulted away.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: empty database path", ErrInvalidConfig)
	}
	if c.KeystorePath == "" {
		return fmt.Errorf("%w: empty keystore path", ErrInvalidConfig)
	}
	if c.Keep < 1 {
		return fmt.Errorf("%w: keep must be at least 1, got %d", ErrInvalidConfig, c.Keep)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Location resolves Timezone; an empty value means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load builds a Config from defaults, the JSON file named in args, the
// environment and finally the flags in args. Later sources take precedence.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, nil); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
