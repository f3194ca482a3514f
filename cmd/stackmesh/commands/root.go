// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated
// to handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the stackmesh CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackmesh",
		Short: "Provision and operate a stackmesh cluster",
	}

	cmd.AddCommand(Bootstrap())
	cmd.AddCommand(AddNode())
	cmd.AddCommand(JoinNode())
	cmd.AddCommand(Status())
	cmd.AddCommand(Reset())
	cmd.AddCommand(Version())

	return cmd
}
