package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hatrpc/hatrpc-go/internal/cli"
	"github.com/hatrpc/hatrpc-go/pkg/discovery"
	"github.com/hatrpc/hatrpc-go/pkg/invoker"
)

// Config holds the server configuration.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Eager binds every capability endpoint at start instead of on first
	// lookup.
	Eager bool `yaml:"eager"`

	// Mock selects mock implementations even on the target hardware.
	Mock bool `yaml:"mock"`

	Advertise AdvertiseConfig `yaml:"advertise"`
	Log       cli.LogOptions  `yaml:"log"`
}

// AdvertiseConfig controls mDNS advertisement of the registry.
type AdvertiseConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Name      string `yaml:"name"`
	Interface string `yaml:"interface"`
}

// DefaultConfig returns a server bound to all interfaces on the default
// registry port.
func DefaultConfig() Config {
	return Config{
		Host: "0.0.0.0",
		Port: invoker.DefaultPort,
		Log:  cli.DefaultLogOptions(),
	}
}

// LoadConfig reads path over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration for usage errors.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	// The capability ports follow the registry port.
	if c.Port <= 0 || c.Port > 65535-2 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := cli.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Advertise.Enabled && c.Advertise.Name != "" {
		if err := discovery.ValidateInstanceName(c.Advertise.Name); err != nil {
			return err
		}
	}
	return nil
}
