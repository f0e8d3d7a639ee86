package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv points the .env lookup at an empty temp dir for one test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := dotEnvFile
	dotEnvFile = filepath.Join(dir, ".env")
	t.Cleanup(func() { dotEnvFile = orig })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "authigel.db", c.DBPath)
	assert.Equal(t, "authigel.key", c.KeystorePath)
	assert.Equal(t, "AuthIgelBackups", c.BackupDir)
	assert.Equal(t, 5, c.Keep)
	assert.Equal(t, time.Hour, c.CheckInterval)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.S3.Enabled())
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"empty keystore path", func(c *Config) { c.KeystorePath = "" }},
		{"keep below one", func(c *Config) { c.Keep = 0 }},
		{"non-positive interval", func(c *Config) { c.CheckInterval = 0 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"unknown time zone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLocation(t *testing.T) {
	c := Config{}
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	c.Timezone = "UTC"
	loc, err = c.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolateEnv(t)

	path := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"db_path":"json.db","backup_dir":"json-backups","keep":9,"check_interval":"10m"}`), 0o600))

	t.Setenv("AUTHIGEL_BACKUP_DIR", "env-backups")
	t.Setenv("AUTHIGEL_KEEP", "7")

	cfg, err := Load([]string{"-c", path, "-n", "3", "-l", "debug"})
	require.NoError(t, err)

	assert.Equal(t, "json.db", cfg.DBPath, "json over defaults")
	assert.Equal(t, "env-backups", cfg.BackupDir, "env over json")
	assert.Equal(t, 3, cfg.Keep, "flags over env")
	assert.Equal(t, 10*time.Minute, cfg.CheckInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "authigel.key", cfg.KeystorePath, "defaults survive")
}

func TestLoad_DotEnvFile(t *testing.T) {
	isolateEnv(t)
	require.NoError(t, os.WriteFile(dotEnvFile, []byte("AUTHIGEL_TIMEZONE=UTC\nAUTHIGEL_S3_BUCKET=from-dotenv\n"), 0o600))

	t.Setenv("AUTHIGEL_S3_BUCKET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("AUTHIGEL_TIMEZONE") })

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "from-env", cfg.S3.Bucket, "process env wins over .env")
}

func TestLoad_Errors(t *testing.T) {
	isolateEnv(t)

	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	_, err = Load([]string{"-i", "soon"})
	assert.Error(t, err)

	_, err = Load([]string{"-n", "0"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
