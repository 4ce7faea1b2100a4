// Package config handles loading hummel.toml configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/moritzmair/agroforst-methoden-apps/pkg/model"
)

// Config represents the hummel.toml configuration file.
type Config struct {
	Walk    Walk    `toml:"walk"`
	Storage Storage `toml:"storage"`
	Species Species `toml:"species"`
}

// Walk configures the counting walk itself.
type Walk struct {
	// DurationSeconds is the countdown length. The survey method counts
	// for five minutes, so this rarely changes outside of testing.
	DurationSeconds int `toml:"duration-seconds"`
	// TargetDistance is the distance in meters a counter is expected to
	// cover over the full duration.
	TargetDistance float64 `toml:"target-distance"`
}

// Storage configures where session data lives.
type Storage struct {
	// Path is the SQLite database file. HUMMEL_DB overrides it.
	Path string `toml:"path"`
}

// Species configures additions to the built-in species list.
type Species struct {
	// Extra species are registered on first use, after the built-ins.
	Extra []string `toml:"extra"`
}

// Load reads the config file and applies environment overrides. A missing
// file yields the defaults. HUMMEL_CONFIG overrides the file location,
// HUMMEL_DB the database path.
func Load() (*Config, error) {
	path := envOr("HUMMEL_CONFIG", "")
	if path == "" {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	if cfg.Walk.DurationSeconds == 0 {
		cfg.Walk.DurationSeconds = int(model.DefaultDuration.Seconds())
	}
	if cfg.Walk.TargetDistance == 0 {
		cfg.Walk.TargetDistance = model.DefaultTargetDistance
	}
	if db := os.Getenv("HUMMEL_DB"); db != "" {
		cfg.Storage.Path = db
	}
	if cfg.Storage.Path == "" {
		p, err := defaultDBPath()
		if err != nil {
			return nil, err
		}
		cfg.Storage.Path = p
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Walk.DurationSeconds <= 0 {
		return fmt.Errorf("walk.duration-seconds must be positive, got %d", c.Walk.DurationSeconds)
	}
	if c.Walk.TargetDistance <= 0 {
		return fmt.Errorf("walk.target-distance must be positive, got %v", c.Walk.TargetDistance)
	}
	return nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config directory: %w", err)
	}
	return filepath.Join(dir, "hummel", "hummel.toml"), nil
}

// defaultDBPath returns the database location and creates its directory.
func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".local", "share", "hummel")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}
	return filepath.Join(dir, "hummel.db"), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
