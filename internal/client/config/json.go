package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authigel/internal/flagx"
	"github.com/dmitrijs2005/authigel/internal/timex"
)

// JsonConfig is a DTO used only for unmarshalling the config file.
type JsonConfig struct {
	DBPath        string         `json:"db_path"`
	KeystorePath  string         `json:"keystore_path"`
	BackupDir     string         `json:"backup_dir"`
	Keep          int            `json:"keep"`
	CheckInterval timex.Duration `json:"check_interval"`
	LogLevel      string         `json:"log_level"`
	Timezone      string         `json:"timezone"`
	S3            JsonS3         `json:"s3"`
}

type JsonS3 struct {
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// parseJson overlays cfg with the non-empty values of the file named by -c
// or -config. No flag means no changes.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.KeystorePath, jc.KeystorePath)
	setString(&cfg.BackupDir, jc.BackupDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.Timezone, jc.Timezone)
	if jc.Keep != 0 {
		cfg.Keep = jc.Keep
	}
	if jc.CheckInterval.Duration != 0 {
		cfg.CheckInterval = jc.CheckInterval.Duration
	}

	setString(&cfg.S3.Bucket, jc.S3.Bucket)
	setString(&cfg.S3.Prefix, jc.S3.Prefix)
	setString(&cfg.S3.Region, jc.S3.Region)
	setString(&cfg.S3.Endpoint, jc.S3.Endpoint)
	setString(&cfg.S3.AccessKey, jc.S3.AccessKey)
	setString(&cfg.S3.SecretKey, jc.S3.SecretKey)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
