// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Play   PlayConfig   `toml:"play"`
	Stats  StatsConfig  `toml:"stats"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// PlayConfig maps play-related settings.
type PlayConfig struct {
	Device       *string `toml:"device"`
	StartSeconds *int    `toml:"start-seconds"`
	Seed         *int64  `toml:"seed"`
	Backend      *string `toml:"backend"`
}

// StatsConfig maps stats command settings.
type StatsConfig struct {
	Last        *int `toml:"last"`
	CurveWindow *int `toml:"curve-window"`
}

// ServerConfig maps settings of the HTTP backend.
type ServerConfig struct {
	Addr *string `toml:"addr"`
	DB   *string `toml:"db"`
	Salt *string `toml:"mission-salt"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
