// Package config loads gmlvm.yaml. Every field has a default, so a missing
// file is not an error.
package config

import (
	"os"
	"strings"

	"github.com/go-errors/errors"
	"gopkg.in/yaml.v3"
)

// LogLevelEnv overrides log.level when set.
const LogLevelEnv = "GMLVM_LOG_LEVEL"

// Compat holds the legacy runtime thresholds.
type Compat struct {
	MaxArrayIndex   int   `yaml:"max_array_index"`
	MaxCallDepth    int   `yaml:"max_call_depth"`
	StackSize       int   `yaml:"stack_size"`
	AlarmSlots      int   `yaml:"alarm_slots"`
	FirstInstanceID int   `yaml:"first_instance_id"`
	MaxGridCells    int   `yaml:"max_grid_cells"`
	RandomSeed      int64 `yaml:"random_seed"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Store selects the INI backend: file, sqlite or dynamodb.
type Store struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	DSN     string `yaml:"dsn"`
	Table   string `yaml:"table"`
	Region  string `yaml:"region"`
}

type Cache struct {
	Units int `yaml:"units"`
}

type External struct {
	SearchPath []string `yaml:"search_path"`
}

type Config struct {
	Compat   Compat   `yaml:"compat"`
	Log      Log      `yaml:"log"`
	Store    Store    `yaml:"store"`
	Cache    Cache    `yaml:"cache"`
	External External `yaml:"external"`
}

func Default() *Config {
	return &Config{
		Compat: Compat{
			MaxArrayIndex:   32000,
			MaxCallDepth:    256,
			StackSize:       4096,
			AlarmSlots:      12,
			FirstInstanceID: 100001,
			MaxGridCells:    1 << 22,
		},
		Log:   Log{Level: "info"},
		Store: Store{Backend: "file", Dir: ".", Table: "gmlvm_ini"},
		Cache: Cache{Units: 256},
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrap(err, 0)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Errorf("config %s: %v", path, err)
			}
		}
	}

	if level := os.Getenv(LogLevelEnv); level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects thresholds the runtime cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Compat.MaxArrayIndex <= 0:
		return errors.Errorf("compat.max_array_index must be positive, got %d", c.Compat.MaxArrayIndex)
	case c.Compat.MaxCallDepth <= 0:
		return errors.Errorf("compat.max_call_depth must be positive, got %d", c.Compat.MaxCallDepth)
	case c.Compat.StackSize <= 0:
		return errors.Errorf("compat.stack_size must be positive, got %d", c.Compat.StackSize)
	case c.Compat.AlarmSlots <= 0:
		return errors.Errorf("compat.alarm_slots must be positive, got %d", c.Compat.AlarmSlots)
	case c.Compat.FirstInstanceID < 100000:
		return errors.Errorf("compat.first_instance_id must be at least 100000, got %d", c.Compat.FirstInstanceID)
	case c.Compat.MaxGridCells <= 0:
		return errors.Errorf("compat.max_grid_cells must be positive, got %d", c.Compat.MaxGridCells)
	case c.Cache.Units <= 0:
		return errors.Errorf("cache.units must be positive, got %d", c.Cache.Units)
	}

	switch strings.ToLower(c.Store.Backend) {
	case "file", "sqlite", "dynamodb":
	default:
		return errors.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}
