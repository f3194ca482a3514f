package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/stackmesh/stackmesh/cmd/stackmesh/handlers"
)

// Status returns the status command.
//
// Status lists the cluster members known to the daemon and, on control
// nodes, reports the state of every control-plane application.
func Status() *cobra.Command {
	var (
		configPath string
		outputPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cluster members and control-plane status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), configPath, outputPath, timeout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to node configuration file (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Also write the full model status as JSON to this file")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the status query")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
