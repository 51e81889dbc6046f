// Package config loads turbine's runtime configuration.
//
// Sources, in order of precedence:
//  1. Command line flags (bound by cmd/turbine)
//  2. Environment variables (TURBINE_* prefix, "." replaced by "_")
//  3. Project config (turbine.toml, found by walking up from the working directory)
//  4. Defaults
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matthewbaird/turbine/internal/errors"
)

// FileName is the project config file looked up by Load.
const FileName = "turbine.toml"

// Config is the resolved configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Generate GenerateConfig `mapstructure:"generate"`
	Events   EventsConfig   `mapstructure:"events"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// StoreConfig selects the run history backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "memory" or "sqlite"
	DSN    string `mapstructure:"dsn"`
}

type GenerateConfig struct {
	Out           string        `mapstructure:"out"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

type EventsConfig struct {
	Buffer int `mapstructure:"buffer"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "file:turbine.db?_pragma=foreign_keys(1)")
	v.SetDefault("generate.out", ".")
	v.SetDefault("generate.watch_debounce", 300*time.Millisecond)
	v.SetDefault("events.buffer", 256)
}

// New returns a viper instance wired with defaults and environment binding.
// When configPath is empty the nearest turbine.toml is used, if any.
func New(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("TURBINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if configPath == "" {
		configPath = findProjectConfig()
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configPath)
		}
	}
	return v, nil
}

// Load resolves the configuration from all sources.
func Load(configPath string) (*Config, error) {
	v, err := New(configPath)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper unmarshals an already prepared viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return errors.Newf("store.driver must be \"memory\" or \"sqlite\", got %q", c.Store.Driver)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Events.Buffer < 1 {
		return errors.Newf("events.buffer must be positive, got %d", c.Events.Buffer)
	}
	return nil
}

// findProjectConfig walks up from the working directory looking for
// turbine.toml. Returns "" when none is found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, FileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
