package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/stackmesh/stackmesh/internal/conductor"
	"github.com/stackmesh/stackmesh/internal/deploy"
)

// Reset handles the reset command.
//
// It destroys the control-plane model and waits until the controller
// confirms its removal. Cluster membership is untouched.
func Reset(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log.Printf("Resetting control plane model %s", cfg.ControlPlane.Model)

	controller := conductor.New(cfg.Conductor.Endpoint, cfg.Conductor.DataDir)
	defer controller.Disconnect()

	plan := []deploy.Step{
		conductor.NewDestroyModelStep(controller, cfg.ControlPlane.Model),
	}
	if _, err := runPlan(ctx, plan); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	log.Printf("Control plane model %s removed", cfg.ControlPlane.Model)
	return nil
}
