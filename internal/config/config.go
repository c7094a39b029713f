// Package config reads the settings of the mesa command from a YAML
// file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatSQLite  = "sqlite"
)

type Config struct {
	// Root of the MESA dataset.
	Root string `yaml:"root"`

	// Output directory, or database file for the sqlite format.
	Output string `yaml:"output"`

	Format    string `yaml:"format"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Root:      ".",
		Output:    "out",
		Format:    FormatCSV,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the file at path on top of the defaults.  An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the field values.
func (c Config) Validate() error {
	if c.Root == "" {
		return errors.New("config: root is required")
	}
	switch c.Format {
	case FormatCSV, FormatParquet, FormatSQLite:
	default:
		return fmt.Errorf("config: unknown format %q", c.Format)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}

// Logger returns a logrus logger set up with the level and format.
func (c Config) Logger() (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	l := logrus.New()
	l.SetLevel(lvl)
	l.SetOutput(os.Stderr)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l, nil
}
