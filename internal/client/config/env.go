package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "AUTHIGEL_"

// dotEnvFile is read before the environment is parsed. Variables already
// set in the process environment win over the file.
var dotEnvFile = ".env"

// parseEnv overlays cfg with AUTHIGEL_* variables. Unset variables leave
// the current value alone. A nil environ reads the process environment.
func parseEnv(cfg *Config, environ map[string]string) error {
	if environ == nil {
		if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", dotEnvFile, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}
