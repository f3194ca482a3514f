package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	if err := mapstructure.Decode(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in values the file may omit.
func applyDefaults(cfg *Config) {
	if cfg.Node.Name == "" {
		if hostname, err := os.Hostname(); err == nil {
			cfg.Node.Name = hostname
		}
	}
	if cfg.Node.Port == 0 {
		cfg.Node.Port = 7000
	}
	if cfg.Node.Role == "" {
		cfg.Node.Role = RoleConverged
	}
	if cfg.Daemon.SocketPath == "" {
		cfg.Daemon.SocketPath = "/var/lib/stackmeshd/control.socket"
	}
	if cfg.Conductor.Binary == "" {
		cfg.Conductor.Binary = "conductor"
	}
	if cfg.Conductor.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Conductor.DataDir = filepath.Join(home, ".local", "share", "conductor")
		}
	}
	if cfg.ControlPlane.Model == "" {
		cfg.ControlPlane.Model = "control-plane"
	}
	if cfg.ControlPlane.DeployDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.ControlPlane.DeployDir = filepath.Join(home, ".local", "share", "stackmesh", "deploy")
		}
	}
	if cfg.Agent.ConfigPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Agent.ConfigPath = filepath.Join(home, ".local", "share", "stackmesh", "agent.json")
		}
	}
}
