// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Server  ServerConfig  `toml:"server"`
	Source  SourceConfig  `toml:"source"`
	Cohort  CohortConfig  `toml:"cohort"`
	Display DisplayConfig `toml:"display"`
}

// ServerConfig maps HTTP server settings.
type ServerConfig struct {
	Addr *string `toml:"addr"`
}

// SourceConfig selects where tables are loaded from.
type SourceConfig struct {
	Kind    *string `toml:"kind"`
	DataDir *string `toml:"data-dir"`
	DBPath  *string `toml:"db-path"`
}

// CohortConfig maps the cohort filter.
type CohortConfig struct {
	NewGraduatesOnly *bool    `toml:"new-graduates-only"`
	ScoreFloor       *float64 `toml:"score-floor"`
}

// DisplayConfig maps timestamp display conventions.
type DisplayConfig struct {
	HourOffset   *int `toml:"hour-offset"`
	WeekdayShift *int `toml:"weekday-shift"`
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
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
