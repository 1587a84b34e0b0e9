package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Run.Benchmark != "sphere" {
		t.Errorf("Default benchmark = %q, want sphere", cfg.Run.Benchmark)
	}
	if cfg.Run.PopSize != 50 {
		t.Errorf("Default pop_size = %d, want 50", cfg.Run.PopSize)
	}
	if cfg.Run.PCrossover != 0.5 {
		t.Errorf("Default p_crossover = %g, want 0.5", cfg.Run.PCrossover)
	}
	if cfg.Run.LogBase != 10.0 {
		t.Errorf("Default log_base = %g, want 10", cfg.Run.LogBase)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Default addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoad_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
run:
  benchmark: rastrigin
  dims: 8
  seed: 42
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Run.Benchmark != "rastrigin" {
		t.Errorf("Benchmark = %q, want rastrigin", cfg.Run.Benchmark)
	}
	if cfg.Run.Dims != 8 {
		t.Errorf("Dims = %d, want 8", cfg.Run.Dims)
	}
	if cfg.Run.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Run.Seed)
	}
	// Fields absent from the file keep defaults
	if cfg.Run.PopSize != 50 {
		t.Errorf("PopSize = %d, want default 50", cfg.Run.PopSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("run: [not: a: mapping"), 0644)

	_, err := Load(path)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"zero dims", func(c *Config) { c.Run.Dims = 0 }, "dims"},
		{"pop size one", func(c *Config) { c.Run.PopSize = 1 }, "pop_size"},
		{"zero generations", func(c *Config) { c.Run.Generations = 0 }, "generations"},
		{"negative workers", func(c *Config) { c.Run.Workers = -1 }, "workers"},
		{"crossover above one", func(c *Config) { c.Run.PCrossover = 1.5 }, "p_crossover"},
		{"negative mutation", func(c *Config) { c.Run.PMutation = -0.1 }, "p_mutation"},
		{"negative mut amount", func(c *Config) { c.Run.MaxMutAmount = -1 }, "max_mut_amount"},
		{"log base below one", func(c *Config) { c.Run.LogBase = 0.5 }, "log_base"},
		{"negative interval", func(c *Config) { c.Run.CheckpointInterval = -1 }, "checkpoint_interval"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Run.Benchmark = "ackley"
	cfg.Run.Seed = 7

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if loaded.Run.Benchmark != "ackley" || loaded.Run.Seed != 7 {
		t.Errorf("Round trip lost values: %+v", loaded.Run)
	}
}
