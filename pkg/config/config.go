// Package config loads bgp-conflicts settings from YAML, flags and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hervehildenbrand/bgp-conflicts/pkg/models"
	"gopkg.in/yaml.v3"
)

// Environment variables (alternative to flags)
const (
	EnvCollector = "BGP_CONFLICTS_COLLECTOR"
	EnvRedis     = "BGP_CONFLICTS_REDIS"
	EnvDatabase  = "BGP_CONFLICTS_DATABASE"
)

// SourceConfig describes one dump source in the config file.
type SourceConfig struct {
	Path      string `yaml:"path"`
	Kind      string `yaml:"kind"` // "bview" or "updates"; classified by content when empty
	Unordered bool   `yaml:"unordered"`
}

// Config is the full tool configuration.
type Config struct {
	Collector string         `yaml:"collector"`
	Sources   []SourceConfig `yaml:"sources"`
	Output    string         `yaml:"output"` // "-" or a file path for JSON lines
	Redis     string         `yaml:"redis"`
	Database  string         `yaml:"database"`
	Subscribe string         `yaml:"subscribe"` // JSON message sent to ws:// sources
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{Output: "-"}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv fills empty settings from environment variables.
func (c *Config) ApplyEnv() {
	c.Collector = getEnvOr(c.Collector, EnvCollector)
	c.Redis = getEnvOr(c.Redis, EnvRedis)
	c.Database = getEnvOr(c.Database, EnvDatabase)
}

// getEnvOr returns val if set, otherwise the environment variable.
func getEnvOr(val, envName string) string {
	if val != "" {
		return val
	}
	return os.Getenv(envName)
}

// AddPaths appends sources given on the command line.
func (c *Config) AddPaths(paths []string) {
	for _, p := range paths {
		c.Sources = append(c.Sources, SourceConfig{Path: p})
	}
}

// Validate checks that the configuration can run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Collector) == "" {
		return errors.New("collector name is required")
	}
	if len(c.Sources) == 0 {
		return errors.New("at least one source is required")
	}
	for _, s := range c.Sources {
		switch s.Kind {
		case "", "bview", "updates":
		default:
			return fmt.Errorf("source %s: unknown kind %q", s.Path, s.Kind)
		}
	}
	return nil
}

// ModelSources converts the configured sources to descriptors.
func (c *Config) ModelSources() []models.Source {
	sources := make([]models.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		src := models.Source{Name: s.Path, Unordered: s.Unordered}
		switch s.Kind {
		case "bview":
			src.Kind = models.SourceBaseline
		case "updates":
			src.Kind = models.SourceUpdates
		}
		sources = append(sources, src)
	}
	return sources
}
