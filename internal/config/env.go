package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment keys.
const (
	EnvJWTSecret   = "CHORDARENA_JWT_SECRET"
	EnvMissionSalt = "CHORDARENA_MISSION_SALT"
	EnvLogLevel    = "LOG_LEVEL"
)

// LoadEnv loads .env files into the process environment. Variables already set win,
// and missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Getenv returns the value of key or def when unset or empty.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
