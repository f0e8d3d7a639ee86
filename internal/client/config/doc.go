// Package config loads runtime configuration for the AuthIgel CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables prefixed with AUTHIGEL_, optionally read from a
//     .env file in the working directory.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-d string     path of the SQLite vault database
//	-k string     path of the device key file
//	-b string     local backup directory
//	-n int        number of automatic backups to keep
//	-i duration   auto-backup check interval (e.g. 1h, 30m)
//	-l string     log level (debug, info, warn, error)
//	-tz string    IANA time zone used for calendar-day throttling
//	-s3-bucket    S3 bucket; when set backups go to S3 instead of -b
//
// # JSON schema
//
// Intervals use timex.Duration, so they can be strings like "1h" or integer
// nanoseconds:
//
//	{
//	  "db_path": "authigel.db",
//	  "keystore_path": "authigel.key",
//	  "backup_dir": "AuthIgelBackups",
//	  "keep": 5,
//	  "check_interval": "1h",
//	  "log_level": "info",
//	  "timezone": "Europe/Riga",
//	  "s3": {"bucket": "vault-backups", "prefix": "otp", "region": "eu-north-1"}
//	}
//
// # Environment
//
//	AUTHIGEL_DB_PATH, AUTHIGEL_KEYSTORE_PATH, AUTHIGEL_BACKUP_DIR,
//	AUTHIGEL_KEEP, AUTHIGEL_CHECK_INTERVAL, AUTHIGEL_LOG_LEVEL,
//	AUTHIGEL_TIMEZONE, AUTHIGEL_S3_BUCKET, AUTHIGEL_S3_PREFIX,
//	AUTHIGEL_S3_REGION, AUTHIGEL_S3_ENDPOINT, AUTHIGEL_S3_ACCESS_KEY,
//	AUTHIGEL_S3_SECRET_KEY
package config
