package commands

import (
	"github.com/spf13/cobra"

	"github.com/stackmesh/stackmesh/cmd/stackmesh/handlers"
	"github.com/stackmesh/stackmesh/internal/config"
)

// AddNode returns the add-node command.
//
// AddNode mints a one-time join token for a new node. Run it on an
// existing cluster member, then pass the token to stackmesh join-node on
// the new machine.
func AddNode() *cobra.Command {
	var (
		configPath string
		role       string
	)

	cmd := &cobra.Command{
		Use:   "add-node <name>",
		Short: "Generate a join token for a new node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.AddNode(cmd.Context(), configPath, args[0], role)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to node configuration file (required)")
	cmd.Flags().StringVar(&role, "role", config.RoleCompute, "Role of the new node (control, compute or converged)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
