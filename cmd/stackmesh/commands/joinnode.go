package commands

import (
	"github.com/spf13/cobra"

	"github.com/stackmesh/stackmesh/cmd/stackmesh/handlers"
)

// JoinNode returns the join-node command.
//
// JoinNode registers the local machine with an existing cluster using a
// token minted by stackmesh add-node. Compute nodes additionally pull
// their agent configuration from the control plane.
func JoinNode() *cobra.Command {
	var (
		configPath string
		token      string
	)

	cmd := &cobra.Command{
		Use:   "join-node",
		Short: "Join the local node to an existing cluster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.JoinNode(cmd.Context(), configPath, token)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to node configuration file (required)")
	cmd.Flags().StringVar(&token, "token", "", "Join token minted by add-node (required)")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}
