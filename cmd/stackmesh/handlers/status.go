package handlers

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/stackmesh/stackmesh/internal/clusterd"
	"github.com/stackmesh/stackmesh/internal/conductor"
	"github.com/stackmesh/stackmesh/internal/deploy"
)

// Status handles the status command.
//
// It lists the cluster members known to the daemon and, on control
// nodes, queries the controller for the state of every control-plane
// application. With an output path the full model status is also written
// to a JSON file.
func Status(ctx context.Context, configPath, outputPath string, timeout time.Duration) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	daemon := clusterd.New(cfg.Daemon.SocketPath)
	members, err := daemon.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("listing cluster members: %w", err)
	}
	printMembers(members)

	if !cfg.Node.IsControl() {
		return nil
	}

	controller := conductor.New(cfg.Conductor.Endpoint, cfg.Conductor.DataDir)
	defer controller.Disconnect()

	plan := []deploy.Step{
		conductor.NewModelStatusStep(controller, cfg.ControlPlane.Model, timeout),
	}
	if outputPath != "" {
		plan = append(plan, conductor.NewWriteModelStatusStep(controller, cfg.ControlPlane.Model, outputPath))
	}

	if _, err := runPlan(ctx, plan); err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	return nil
}

func printMembers(members []clusterd.Member) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tSTATUS")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, m.Address, m.Status)
	}
	_ = w.Flush()
}
