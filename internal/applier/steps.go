package applier

import (
	"context"
	"log"
	"time"

	"github.com/stackmesh/stackmesh/internal/deploy"
	"github.com/stackmesh/stackmesh/internal/util/retry"
)

// ModelWaiter blocks until every unit of every application in a model is
// active. Implemented by the conductor client.
type ModelWaiter interface {
	WaitUntilActive(ctx context.Context, model string) error
}

// InitStep prepares the applier workspace.
type InitStep struct {
	helper *Helper
}

// NewInitStep creates the workspace initialization step.
func NewInitStep(helper *Helper) *InitStep {
	return &InitStep{helper: helper}
}

func (s *InitStep) Name() string        { return "applier-init" }
func (s *InitStep) Description() string { return "Initializing applier workspace" }

// Skip always runs init. Init is idempotent and picks up provider
// upgrades, so probing for a previous run buys nothing.
func (s *InitStep) Skip(_ context.Context) bool { return false }

func (s *InitStep) Run(ctx context.Context) deploy.Result {
	if err := s.helper.Init(ctx); err != nil {
		return deploy.Fail(err.Error())
	}
	return deploy.Complete()
}

// DeployControlPlaneStep writes the deployment variables, applies the
// control-plane definition and waits for the model to settle.
type DeployControlPlaneStep struct {
	helper *Helper
	waiter ModelWaiter
	model  string
	cloud  string

	// applyRetries bounds retries of a failed apply; shortened in tests.
	applyRetries int
	retryDelay   time.Duration
}

// NewDeployControlPlaneStep creates the control-plane deployment step for
// the given model on the given cloud.
func NewDeployControlPlaneStep(helper *Helper, waiter ModelWaiter, model, cloud string) *DeployControlPlaneStep {
	return &DeployControlPlaneStep{
		helper:       helper,
		waiter:       waiter,
		model:        model,
		cloud:        cloud,
		applyRetries: 2,
		retryDelay:   10 * time.Second,
	}
}

func (s *DeployControlPlaneStep) Name() string        { return "deploy-control-plane" }
func (s *DeployControlPlaneStep) Description() string { return "Deploying control plane" }

// Skip always applies. The applier reconciles against live state, so a
// re-run of an already-deployed plan is a no-op apply.
func (s *DeployControlPlaneStep) Skip(_ context.Context) bool { return false }

func (s *DeployControlPlaneStep) Run(ctx context.Context) deploy.Result {
	if err := s.helper.WriteVars(map[string]any{
		"model": s.model,
		"cloud": s.cloud,
	}); err != nil {
		return deploy.Fail(err.Error())
	}

	// Apply failures are commonly transient while the controller is still
	// coming up, so retry a couple of times before giving up.
	err := retry.Do(ctx, func() error {
		if err := s.helper.Apply(ctx); err != nil {
			log.Printf("applying control plane: %v", err)
			return err
		}
		return nil
	}, retry.WithMaxRetries(s.applyRetries), retry.WithInitialDelay(s.retryDelay))
	if err != nil {
		return deploy.Fail(err.Error())
	}

	if err := s.waiter.WaitUntilActive(ctx, s.model); err != nil {
		return deploy.Failf("waiting for model %s to settle: %v", s.model, err)
	}
	return deploy.Complete()
}
