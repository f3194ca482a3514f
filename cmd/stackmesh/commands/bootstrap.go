package commands

import (
	"github.com/spf13/cobra"

	"github.com/stackmesh/stackmesh/cmd/stackmesh/handlers"
)

// Bootstrap returns the bootstrap command.
//
// Bootstrap turns the local machine into the first node of a cluster.
// The plan it runs depends on the configured node role: control nodes
// additionally bootstrap the workload controller and deploy the control
// plane, compute nodes synchronize the local agent configuration.
func Bootstrap() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap the first node of a cluster",
		Long: `Bootstrap initializes the local node as the first member of a new
cluster and, depending on the node role, brings up the control plane.

The command is idempotent: steps that already took effect are skipped,
so a failed bootstrap can be re-run after fixing the cause.

Example:
  stackmesh bootstrap -c /etc/stackmesh/stackmesh.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bootstrap(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to node configuration file (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
