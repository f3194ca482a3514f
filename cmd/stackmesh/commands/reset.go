package commands

import (
	"github.com/spf13/cobra"

	"github.com/stackmesh/stackmesh/cmd/stackmesh/handlers"
)

// Reset returns the reset command.
//
// Reset destroys the control-plane model on the workload controller and
// waits until the controller confirms its removal.
func Reset() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Destroy the control-plane deployment",
		Long: `Reset tears down the control-plane model, removing every deployed
application. Cluster membership is left intact; bootstrap can be re-run
afterwards to redeploy.

WARNING: This operation is irreversible. All control-plane state is lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Reset(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to node configuration file (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
