package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackmesh/stackmesh/internal/clusterd"
	"github.com/stackmesh/stackmesh/internal/conductor"
	"github.com/stackmesh/stackmesh/internal/config"
	"github.com/stackmesh/stackmesh/internal/deploy"
)

type fakeDaemonAPI struct{}

func (fakeDaemonAPI) Bootstrap(context.Context, string, string) error { return nil }
func (fakeDaemonAPI) AddNode(context.Context, string, string) (string, error) {
	return "", nil
}
func (fakeDaemonAPI) JoinNode(context.Context, string, string, string) error { return nil }
func (fakeDaemonAPI) ListMembers(context.Context) ([]clusterd.Member, error) { return nil, nil }

func testConfig(role string) *config.Config {
	return &config.Config{
		Node: config.NodeConfig{
			Name:    "node-1",
			Address: "10.0.0.5",
			Port:    7000,
			Role:    role,
		},
		Daemon: config.DaemonConfig{SocketPath: "/run/stackmeshd.sock"},
		Conductor: config.ConductorConfig{
			Cloud:   "stackmesh-cloud",
			DataDir: "/var/lib/conductor",
		},
		ControlPlane: config.ControlPlaneConfig{
			Model:     "control-plane",
			DeployDir: "/var/lib/stackmesh/deploy",
		},
		Agent: config.AgentConfig{ConfigPath: "/var/lib/stackmesh/agent.json"},
	}
}

func planSteps(plan []deploy.Step) []string {
	names := make([]string, 0, len(plan))
	for _, step := range plan {
		names = append(names, step.Name())
	}
	return names
}

func newPlanFixtures(t *testing.T) (clusterd.API, *conductor.Client, *conductor.CLIRunner) {
	t.Helper()
	controller := conductor.New("ws://127.0.0.1:17070", t.TempDir())
	return fakeDaemonAPI{}, controller, conductor.NewCLIRunner("conductor")
}

func TestBuildBootstrapPlanControlNode(t *testing.T) {
	t.Parallel()

	daemon, controller, cli := newPlanFixtures(t)
	plan := buildBootstrapPlan(testConfig(config.RoleControl), daemon, controller, cli)

	assert.Equal(t, []string{
		"bootstrap-cluster",
		"bootstrap-conductor",
		"create-model",
		"applier-init",
		"deploy-control-plane",
	}, planSteps(plan))
}

func TestBuildBootstrapPlanControlNodeWithBundle(t *testing.T) {
	t.Parallel()

	daemon, controller, cli := newPlanFixtures(t)
	cfg := testConfig(config.RoleControl)
	cfg.ControlPlane.Bundle = "/etc/stackmesh/bundle.yaml"
	plan := buildBootstrapPlan(cfg, daemon, controller, cli)

	names := planSteps(plan)
	assert.Contains(t, names, "deploy-bundle")
	// Bundle goes in after the model exists and before the applier runs.
	require.Len(t, names, 6)
	assert.Equal(t, "create-model", names[2])
	assert.Equal(t, "deploy-bundle", names[3])
	assert.Equal(t, "applier-init", names[4])
}

func TestBuildBootstrapPlanComputeNode(t *testing.T) {
	t.Parallel()

	daemon, controller, cli := newPlanFixtures(t)
	plan := buildBootstrapPlan(testConfig(config.RoleCompute), daemon, controller, cli)

	assert.Equal(t, []string{
		"bootstrap-cluster",
		"sync-identity-config",
		"sync-messaging-config",
		"sync-network-config",
	}, planSteps(plan))
}

func TestBuildBootstrapPlanConvergedNode(t *testing.T) {
	t.Parallel()

	daemon, controller, cli := newPlanFixtures(t)
	plan := buildBootstrapPlan(testConfig(config.RoleConverged), daemon, controller, cli)

	names := planSteps(plan)
	// Converged nodes get both the control-plane and the compute steps,
	// control plane first.
	assert.Equal(t, "bootstrap-cluster", names[0])
	assert.Contains(t, names, "deploy-control-plane")
	assert.Contains(t, names, "sync-identity-config")
	assert.Less(t,
		indexOf(names, "deploy-control-plane"),
		indexOf(names, "sync-identity-config"))
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
