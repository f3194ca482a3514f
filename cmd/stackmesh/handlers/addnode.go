package handlers

import (
	"context"
	"fmt"

	"github.com/stackmesh/stackmesh/internal/clusterd"
	"github.com/stackmesh/stackmesh/internal/config"
	"github.com/stackmesh/stackmesh/internal/deploy"
)

// AddNode handles the add-node command.
//
// It mints a one-time join token for the named node and prints it. The
// role is validated here; the daemon records it with the token so the
// joining node assumes the right services.
func AddNode(ctx context.Context, configPath, nodeName, role string) error {
	switch role {
	case config.RoleControl, config.RoleCompute, config.RoleConverged:
	default:
		return fmt.Errorf("role %q must be one of %s, %s, %s",
			role, config.RoleControl, config.RoleCompute, config.RoleConverged)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	daemon := clusterd.New(cfg.Daemon.SocketPath)
	plan := []deploy.Step{
		clusterd.NewClusterAddNodeStep(daemon, nodeName, role),
	}

	outcomes, err := runPlan(ctx, plan)
	if err != nil {
		return fmt.Errorf("add-node failed: %w", err)
	}

	for _, outcome := range outcomes {
		if outcome.Step != "add-node" {
			continue
		}
		switch outcome.Result.Type {
		case deploy.Completed:
			fmt.Printf("Token for node %s: %s\n", nodeName, outcome.Result.Message)
		case deploy.Skipped:
			fmt.Printf("Node %s is already a cluster member\n", nodeName)
		}
	}
	return nil
}
