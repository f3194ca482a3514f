// Package handlers implements the execution logic behind the CLI
// commands: loading configuration, building the control-plane clients,
// assembling the deployment plan for the node role and running it.
package handlers

import (
	"context"
	"os"

	"github.com/stackmesh/stackmesh/internal/config"
	"github.com/stackmesh/stackmesh/internal/deploy"
)

// loadConfig is replaceable in tests.
var loadConfig = config.LoadFile

// runPlan executes a deployment plan with progress on stdout and returns
// the collected outcomes.
func runPlan(ctx context.Context, plan []deploy.Step) ([]deploy.Outcome, error) {
	runner := deploy.NewRunner(os.Stdout, deploy.NewConsoleObserver())
	return runner.Execute(ctx, plan)
}
