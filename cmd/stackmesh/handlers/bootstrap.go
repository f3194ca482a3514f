package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/stackmesh/stackmesh/internal/agent"
	"github.com/stackmesh/stackmesh/internal/applier"
	"github.com/stackmesh/stackmesh/internal/clusterd"
	"github.com/stackmesh/stackmesh/internal/conductor"
	"github.com/stackmesh/stackmesh/internal/config"
	"github.com/stackmesh/stackmesh/internal/deploy"
)

// Bootstrap handles the bootstrap command.
//
// It initializes cluster membership on the local node and, per the node
// role, bootstraps the workload controller, deploys the control plane and
// synchronizes the compute agent configuration.
func Bootstrap(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log.Printf("Bootstrapping node %s as %s", cfg.Node.Name, cfg.Node.Role)

	daemon := clusterd.New(cfg.Daemon.SocketPath)
	controller := conductor.New(cfg.Conductor.Endpoint, cfg.Conductor.DataDir)
	defer controller.Disconnect()
	cli := conductor.NewCLIRunner(cfg.Conductor.Binary)

	plan := buildBootstrapPlan(cfg, daemon, controller, cli)
	if _, err := runPlan(ctx, plan); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	log.Printf("Node %s bootstrapped", cfg.Node.Name)
	return nil
}

// buildBootstrapPlan assembles the bootstrap plan for the node role.
// Every node initializes cluster membership first; control nodes then
// bring up the orchestration control plane, compute nodes pull their
// agent configuration from it.
func buildBootstrapPlan(cfg *config.Config, daemon clusterd.API, controller *conductor.Client, cli *conductor.CLIRunner) []deploy.Step {
	plan := []deploy.Step{
		clusterd.NewClusterInitStep(daemon, cfg.Node.Name, cfg.Node.MemberAddress()),
	}

	if cfg.Node.IsControl() {
		plan = append(plan,
			conductor.NewBootstrapConductorStep(cli, cfg.Conductor.Cloud),
			conductor.NewCreateModelStep(controller, cfg.ControlPlane.Model),
		)
		if cfg.ControlPlane.Bundle != "" {
			plan = append(plan, conductor.NewDeployBundleStep(
				controller, cfg.ControlPlane.Model, cfg.ControlPlane.Bundle, "control-plane services"))
		}
		helper := applier.NewHelper(cfg.ControlPlane.DeployDir)
		plan = append(plan,
			applier.NewInitStep(helper),
			applier.NewDeployControlPlaneStep(helper, controller, cfg.ControlPlane.Model, cfg.Conductor.Cloud),
		)
	}

	if cfg.Node.IsCompute() {
		plan = append(plan, agentSyncSteps(cfg, controller)...)
	}

	return plan
}

// agentSyncSteps builds the compute agent configuration sync steps.
func agentSyncSteps(cfg *config.Config, actions agent.ActionRunner) []deploy.Step {
	store := agent.NewStore(cfg.Agent.ConfigPath)
	return []deploy.Step{
		agent.NewSyncIdentityStep(store, actions, cfg.ControlPlane.Model, cfg.Node.Name),
		agent.NewSyncMessagingStep(store, actions, cfg.ControlPlane.Model),
		agent.NewSyncNetworkStep(store, actions, cfg.ControlPlane.Model),
	}
}
