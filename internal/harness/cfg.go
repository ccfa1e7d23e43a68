package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/netdev-tools/ctbench/internal/conntrack"
	"github.com/netdev-tools/ctbench/internal/logging"
	"github.com/netdev-tools/ctbench/internal/replay"
)

// Config is the harness configuration.
type Config struct {
	// Logging configuration.
	Logging logging.Config `yaml:"logging"`
	// Conntrack is the configuration of the shared tracking table.
	Conntrack conntrack.Config `yaml:"conntrack"`
	// Replay is the configuration of the capture replay path.
	Replay replay.Config `yaml:"replay"`
}

// LoadConfig loads configuration from a YAML file at the specified path. An
// empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Conntrack: conntrack.DefaultConfig(),
		Replay:    replay.DefaultConfig(),
	}
}
