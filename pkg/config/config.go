// Package config loads daemon configuration from YAML with sane defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Refresh RefreshConfig `yaml:"refresh"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// BackendConfig configures the report backend client.
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second
	Burst     int           `yaml:"burst"`
	TopEdges  int           `yaml:"top_edges"` // garbage edges per refresh
}

// RefreshConfig configures the refresh scheduler.
type RefreshConfig struct {
	Metric     string        `yaml:"metric"`      // spread | ml | total
	TargetProb float64       `yaml:"target_prob"` // clamped to [0.55, 0.75]
	Debounce   time.Duration `yaml:"debounce"`
	Interval   time.Duration `yaml:"interval"`
	Auto       bool          `yaml:"auto"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Backend: BackendConfig{
			BaseURL:   "http://localhost:8600",
			Timeout:   30 * time.Second,
			RateLimit: 5.0,
			Burst:     4,
			TopEdges:  25,
		},
		Refresh: RefreshConfig{
			Metric:     "spread",
			TargetProb: 0.65,
			Debounce:   250 * time.Millisecond,
			Interval:   30 * time.Second,
			Auto:       false,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
