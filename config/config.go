// Package config loads the run configuration of the chemio tools.
//
// Configuration is layered: built-in defaults, then each YAML file in the
// order it was added, then CHEMIO_* environment variables.
//
// Example file:
//
//	workers: 8
//	strict: false
//	ordered: true
//	log_level: verbose
//	progress_interval: 2s
//	database:
//	  batch_size: 5000
//	metrics:
//	  textfile: /var/lib/node_exporter/chemconv.prom
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davidvella/chemio/console"
	"github.com/davidvella/chemio/scanner"
)

// Config is the run configuration of a batch tool.
type Config struct {
	// Workers is the number of scanning goroutines; 0 scans on the calling goroutine.
	Workers int  `yaml:"workers"`
	Strict  bool `yaml:"strict"`
	// Ordered keeps output records in input order.
	Ordered bool `yaml:"ordered"`

	InputFormat  string `yaml:"input_format,omitempty"`
	OutputFormat string `yaml:"output_format,omitempty"`

	LogLevel         string        `yaml:"log_level"`
	ProgressQuantum  int           `yaml:"progress_quantum"`
	ProgressInterval time.Duration `yaml:"progress_interval"`

	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig configures the pebble molecule database format.
type DatabaseConfig struct {
	BatchSize    int   `yaml:"batch_size"`
	CacheSize    int64 `yaml:"cache_size"`
	MaxOpenFiles int   `yaml:"max_open_files"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile is written in the Prometheus text format when the run ends.
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Workers:          runtime.GOMAXPROCS(0),
		LogLevel:         console.LevelInfo.String(),
		ProgressQuantum:  scanner.DefaultQuantum,
		ProgressInterval: time.Second,
		Database: DatabaseConfig{
			BatchSize:    1000,
			CacheSize:    8 << 20,
			MaxOpenFiles: 100,
		},
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.ProgressQuantum <= 0 {
		return fmt.Errorf("progress_quantum must be positive, got %d", c.ProgressQuantum)
	}
	if c.ProgressInterval < 0 {
		return errors.New("progress_interval must not be negative")
	}
	if _, err := console.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Database.BatchSize < 0 || c.Database.CacheSize < 0 || c.Database.MaxOpenFiles < 0 {
		return errors.New("database settings must not be negative")
	}
	return nil
}

// Level returns the parsed console level.
func (c *Config) Level() console.Level {
	level, err := console.ParseLevel(c.LogLevel)
	if err != nil {
		return console.LevelInfo
	}
	return level
}

// SaveToFile saves the configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  "CHEMIO",
		lookupEnv:  os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// loadFile decodes path over cfg. Keys absent from the file keep their
// current values.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (l *Loader) applyEnvOverrides(cfg *Config) error {
	var errs []error

	str := func(name string, dst *string) {
		if val, ok := l.lookupEnv(l.envPrefix + "_" + name); ok && val != "" {
			*dst = val
		}
	}
	integer := func(name string, dst *int) {
		if val, ok := l.lookupEnv(l.envPrefix + "_" + name); ok && val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s_%s: %w", l.envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if val, ok := l.lookupEnv(l.envPrefix + "_" + name); ok && val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s_%s: %w", l.envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	integer("WORKERS", &cfg.Workers)
	boolean("STRICT", &cfg.Strict)
	boolean("ORDERED", &cfg.Ordered)
	str("INPUT_FORMAT", &cfg.InputFormat)
	str("OUTPUT_FORMAT", &cfg.OutputFormat)
	str("LOG_LEVEL", &cfg.LogLevel)
	integer("DATABASE_BATCH_SIZE", &cfg.Database.BatchSize)
	str("METRICS_TEXTFILE", &cfg.Metrics.Textfile)

	return errors.Join(errs...)
}
