// Package config provides YAML configuration loading for runs and the server.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/genetune/internal/store"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds the full tool configuration.
type Config struct {
	Run    store.RunConfig `yaml:"run"`
	Server ServerConfig    `yaml:"server"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	DataDir string `yaml:"data_dir"`
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct, only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges. Benchmark name resolution happens at run
// start, where the registry is available.
func (c *Config) Validate() error {
	r := c.Run
	if r.Dims < 1 {
		return fmt.Errorf("config: dims must be >= 1, got %d", r.Dims)
	}
	if r.PopSize < 2 {
		return fmt.Errorf("config: pop_size must be >= 2, got %d", r.PopSize)
	}
	if r.Generations < 1 {
		return fmt.Errorf("config: generations must be >= 1, got %d", r.Generations)
	}
	if r.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", r.Workers)
	}
	if r.PCrossover < 0 || r.PCrossover > 1 {
		return fmt.Errorf("config: p_crossover must be in [0,1], got %g", r.PCrossover)
	}
	if r.PMutation < 0 || r.PMutation > 1 {
		return fmt.Errorf("config: p_mutation must be in [0,1], got %g", r.PMutation)
	}
	if r.MaxMutAmount < 0 {
		return fmt.Errorf("config: max_mut_amount must be >= 0, got %g", r.MaxMutAmount)
	}
	if r.LogBase < 1 {
		return fmt.Errorf("config: log_base must be >= 1, got %g", r.LogBase)
	}
	if r.CheckpointInterval < 0 {
		return fmt.Errorf("config: checkpoint_interval must be >= 0, got %d", r.CheckpointInterval)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server addr must not be empty")
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file, for reproducing runs.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
