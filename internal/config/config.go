// Package config loads and validates the stackmesh deployment
// configuration.
package config

import (
	"fmt"
	"net"
)

// Node roles. A control node runs the orchestration control plane, a
// compute node runs workloads, a converged node runs both.
const (
	RoleControl   = "control"
	RoleCompute   = "compute"
	RoleConverged = "converged"
)

// Config is the top-level stackmesh configuration.
type Config struct {
	Node         NodeConfig         `mapstructure:"node"`
	Daemon       DaemonConfig       `mapstructure:"daemon"`
	Conductor    ConductorConfig    `mapstructure:"conductor"`
	ControlPlane ControlPlaneConfig `mapstructure:"control_plane"`
	Agent        AgentConfig        `mapstructure:"agent"`
}

// AgentConfig locates the compute agent's synchronized configuration.
type AgentConfig struct {
	ConfigPath string `mapstructure:"config_path"`
}

// NodeConfig identifies the local node within the cluster.
type NodeConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Role    string `mapstructure:"role"`
}

// DaemonConfig locates the cluster-membership daemon.
type DaemonConfig struct {
	SocketPath string `mapstructure:"socket_path"`
}

// ConductorConfig locates the workload orchestration controller.
type ConductorConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	DataDir  string `mapstructure:"data_dir"`
	Binary   string `mapstructure:"binary"`
	Cloud    string `mapstructure:"cloud"`
}

// ControlPlaneConfig describes the control-plane deployment.
type ControlPlaneConfig struct {
	Model     string `mapstructure:"model"`
	Bundle    string `mapstructure:"bundle"`
	DeployDir string `mapstructure:"deploy_dir"`
}

// MemberAddress is the address the node registers in the cluster,
// including the membership port.
func (n NodeConfig) MemberAddress() string {
	return net.JoinHostPort(n.Address, fmt.Sprintf("%d", n.Port))
}

// IsControl reports whether the node runs control-plane services.
// Converged nodes do.
func (n NodeConfig) IsControl() bool { return n.Role != RoleCompute }

// IsCompute reports whether the node runs compute services. Converged
// nodes do.
func (n NodeConfig) IsCompute() bool { return n.Role != RoleControl }

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Node.Name == "" {
		return fmt.Errorf("node.name must not be empty")
	}
	if c.Node.Address == "" {
		return fmt.Errorf("node.address must not be empty")
	}
	if net.ParseIP(c.Node.Address) == nil {
		return fmt.Errorf("node.address %q is not a valid IP address", c.Node.Address)
	}
	if c.Node.Port <= 0 || c.Node.Port > 65535 {
		return fmt.Errorf("node.port %d is out of range", c.Node.Port)
	}
	switch c.Node.Role {
	case RoleControl, RoleCompute, RoleConverged:
	default:
		return fmt.Errorf("node.role %q must be one of %s, %s, %s",
			c.Node.Role, RoleControl, RoleCompute, RoleConverged)
	}
	if c.Daemon.SocketPath == "" {
		return fmt.Errorf("daemon.socket_path must not be empty")
	}
	if c.Node.IsControl() {
		if c.ControlPlane.Model == "" {
			return fmt.Errorf("control_plane.model must not be empty on a %s node", c.Node.Role)
		}
		if c.ControlPlane.DeployDir == "" {
			return fmt.Errorf("control_plane.deploy_dir must not be empty on a %s node", c.Node.Role)
		}
		if c.Conductor.Cloud == "" {
			return fmt.Errorf("conductor.cloud must not be empty on a %s node", c.Node.Role)
		}
	}
	return nil
}
