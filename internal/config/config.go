// Package config holds the monitor configuration, loadable from a YAML
// file with command-line flags layered on top.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blakegolliher/nfs-gaze/internal/procfs"
)

// Config is the full runtime configuration.
type Config struct {
	MountstatsPath string        `yaml:"mountstats_path"`
	MountPoint     string        `yaml:"mount_point"`
	Operations     []string      `yaml:"operations"`
	Interval       time.Duration `yaml:"interval"`
	Count          int           `yaml:"count"`
	ShowAttr       bool          `yaml:"show_attr"`
	ShowBandwidth  bool          `yaml:"show_bandwidth"`
	NfsiostatMode  bool          `yaml:"nfsiostat_format"`
	ClearScreen    bool          `yaml:"clear_screen"`
	Metrics        Metrics       `yaml:"metrics"`
}

// Metrics configures the optional Prometheus scrape endpoint.
type Metrics struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

// Default returns the configuration used when no file and no flags are
// given.
func Default() Config {
	return Config{
		MountstatsPath: procfs.DefaultPath,
		Interval:       time.Second,
		Metrics: Metrics{
			ListenAddress: "127.0.0.1:9099",
		},
	}
}

// Load reads a YAML config file over the defaults. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Count < 0 {
		return fmt.Errorf("count must be zero or positive, got %d", c.Count)
	}
	if c.MountstatsPath == "" {
		return fmt.Errorf("mountstats_path must not be empty")
	}
	return nil
}

// OperationsFilter returns the configured operations as a filter set. An
// empty configuration yields an empty set, meaning "show all".
func (c *Config) OperationsFilter() map[string]bool {
	filter := make(map[string]bool)
	for _, op := range c.Operations {
		op = strings.TrimSpace(op)
		if op != "" {
			filter[op] = true
		}
	}
	return filter
}

// ParseOperationsList splits a comma-separated operations flag value,
// trimming whitespace and dropping empty entries.
func ParseOperationsList(value string) []string {
	var ops []string
	for _, op := range strings.Split(value, ",") {
		op = strings.TrimSpace(op)
		if op != "" {
			ops = append(ops, op)
		}
	}
	return ops
}
