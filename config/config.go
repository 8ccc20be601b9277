package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level configuration of the dispatchgo command.
type Config struct {
	Model   ModelConfig   `json:"model"`
	Store   StoreConfig   `json:"store"`
	Logging LoggingConfig `json:"logging"`
}

// ModelConfig selects the model to run and its inputs.
type ModelConfig struct {
	Name    string         `json:"name"`
	Inputs  map[string]any `json:"inputs"`
	Outputs []string       `json:"outputs"`
}

// StoreConfig selects the run persistence backend.
type StoreConfig struct {
	Backend    string `json:"backend"`    // memory, file, sqlite, redis or postgres
	Path       string `json:"path"`       // directory (file) or database path (sqlite)
	Addr       string `json:"addr"`       // redis address
	Password   string `json:"password"`   // redis password
	DB         int    `json:"db"`         // redis database number
	ConnString string `json:"connString"` // postgres connection string
	Table      string `json:"table"`      // sqlite/postgres table name
}

// LoggingConfig controls the log verbosity.
type LoggingConfig struct {
	Level string `json:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	c.Model.SetDefaults()
	c.Store.SetDefaults()
	c.Logging.SetDefaults()
}

func (c *ModelConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "physical"
	}
}

func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		c.Path = "runs"
	}
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

var validBackends = map[string]bool{
	"memory": true, "file": true, "sqlite": true, "redis": true, "postgres": true,
}

func (c *StoreConfig) Validate() error {
	if !validBackends[c.Backend] {
		return fmt.Errorf("unknown store backend: %s", c.Backend)
	}
	if c.Backend == "postgres" && c.ConnString == "" {
		return fmt.Errorf("postgres backend requires a connection string")
	}
	return nil
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

func (c *LoggingConfig) Validate() error {
	if !validLevels[c.Level] {
		return fmt.Errorf("unknown log level: %s", c.Level)
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// Load reads a YAML or JSON configuration file, applies environment
// overrides (DISPATCHGO_MODEL__NAME=... maps to model.name) and fills
// the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("DISPATCHGO_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "dispatchgo_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
