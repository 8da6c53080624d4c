/*
Package config loads monotax settings from a TOML file and the environment.

SOURCES (later wins):
  1. Built-in defaults (Default)
  2. config.toml in the user config dir, e.g. ~/.config/monotax/config.toml
  3. .env files read with godotenv
  4. Process environment

ENVIRONMENT:
  MONOTAX_DB        Database path
  MONOTAX_PORT      HTTP port for `monotax serve`
  MONOTAX_TAX_RATE  Flat tax rate, e.g. 0.05

FILE FORMAT:
  [tax]
  rate = 0.05
  schedule = "single tax"   # optional, settles payments against a stored schedule

  [taxer]
  id = "1234567890"
  account_name = "FOP"
  default_comment = "Services"

  [database]
  path = "/home/me/.config/monotax/monotax.db"

  [server]
  port = "8080"
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/warp/monotax/ledger"
)

const (
	AppName  = "monotax"
	FileName = "config.toml"

	DefaultTaxRate = 0.05
	DefaultTaxerID = "1234567890"
	DefaultDBFile  = "monotax.db"
	DefaultPort    = "8080"
)

// ErrExists is returned by Init when a config file is already present.
var ErrExists = errors.New("config file already exists")

type Config struct {
	Tax      TaxConfig      `toml:"tax"`
	Taxer    TaxerConfig    `toml:"taxer"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

type TaxConfig struct {
	Rate     float64 `toml:"rate"`
	Schedule string  `toml:"schedule,omitempty"`
}

// TaxerConfig feeds the Taxer CSV export.
type TaxerConfig struct {
	ID             string `toml:"id"`
	AccountName    string `toml:"account_name"`
	DefaultComment string `toml:"default_comment"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

func Default() Config {
	return Config{
		Tax:      TaxConfig{Rate: DefaultTaxRate},
		Taxer:    TaxerConfig{ID: DefaultTaxerID},
		Database: DatabaseConfig{Path: DefaultDBFile},
		Server:   ServerConfig{Port: DefaultPort},
	}
}

// Dir returns the monotax directory inside the user config dir.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// Load reads the config file at path, then applies .env files and the
// environment. A missing config file yields the defaults. Keys absent
// from the file keep their default values.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	env, err := readEnvFiles(envFiles)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// readEnvFiles merges the files that exist. Missing files are skipped.
func readEnvFiles(files []string) (map[string]string, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(existing...)
	if err != nil {
		return nil, fmt.Errorf("read env files: %w", err)
	}
	return env, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("MONOTAX_DB"); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup("MONOTAX_PORT"); ok && v != "" {
		c.Server.Port = v
	}
	if v, ok := lookup("MONOTAX_TAX_RATE"); ok && v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MONOTAX_TAX_RATE: %w", err)
		}
		c.Tax.Rate = rate
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := c.TaxRate(); err != nil {
		return fmt.Errorf("tax.rate: %w", err)
	}
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	return nil
}

// TaxRate returns the flat rate used when no schedule is configured.
func (c Config) TaxRate() (ledger.TaxRate, error) {
	return ledger.NewTaxRate(c.Tax.Rate)
}

// Init writes a default config into dir, placing the database next to it.
// It returns the written path, or ErrExists unless force is set.
func Init(dir string, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return path, ErrExists
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	cfg := Default()
	cfg.Database.Path = filepath.Join(dir, DefaultDBFile)
	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
