package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/stackmesh/stackmesh/internal/clusterd"
	"github.com/stackmesh/stackmesh/internal/conductor"
	"github.com/stackmesh/stackmesh/internal/config"
	"github.com/stackmesh/stackmesh/internal/deploy"
)

// JoinNode handles the join-node command.
//
// It registers the local node with an existing cluster using the token
// minted by add-node. Compute nodes then synchronize their agent
// configuration from the control plane.
func JoinNode(ctx context.Context, configPath, token string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log.Printf("Joining node %s as %s", cfg.Node.Name, cfg.Node.Role)

	daemon := clusterd.New(cfg.Daemon.SocketPath)
	controller := conductor.New(cfg.Conductor.Endpoint, cfg.Conductor.DataDir)
	defer controller.Disconnect()

	plan := buildJoinPlan(cfg, daemon, controller, token)
	if _, err := runPlan(ctx, plan); err != nil {
		return fmt.Errorf("join-node failed: %w", err)
	}

	log.Printf("Node %s joined the cluster", cfg.Node.Name)
	return nil
}

// buildJoinPlan assembles the join plan for the node role.
func buildJoinPlan(cfg *config.Config, daemon clusterd.API, controller *conductor.Client, token string) []deploy.Step {
	plan := []deploy.Step{
		clusterd.NewClusterJoinNodeStep(daemon, cfg.Node.Name, cfg.Node.MemberAddress(), token),
	}
	if cfg.Node.IsCompute() {
		plan = append(plan, agentSyncSteps(cfg, controller)...)
	}
	return plan
}
