// Package main is the entry point for the stackmesh CLI.
//
// stackmesh provisions a multi-node cluster by driving three control
// planes: the cluster-membership daemon, the workload orchestration
// controller and the declarative infrastructure applier. Deployment is
// expressed as a plan of idempotent steps executed strictly in order.
//
// Commands: bootstrap, add-node, join-node, status, reset.
//
// For detailed usage information, run:
//
//	stackmesh --help
package main

import (
	"fmt"
	"os"

	"github.com/stackmesh/stackmesh/cmd/stackmesh/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
