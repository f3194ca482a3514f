package conductor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/stackmesh/stackmesh/internal/deploy"
)

// ModelManager is the subset of controller operations the conductor steps
// need. Implemented by *Client; tests substitute a fake.
type ModelManager interface {
	AddModel(ctx context.Context, model string) bool
	GetModels(ctx context.Context) ([]string, error)
	Status(ctx context.Context, model string) (*ModelStatus, error)
	ApplicationStatuses(ctx context.Context, model string) (map[string]string, error)
	GetModelStatus(ctx context.Context, model string, timeout time.Duration) map[string]string
	DeployBundle(ctx context.Context, model, bundlePath string) bool
	DestroyModel(ctx context.Context, model string, waitRemoved bool) bool
}

// modelPresent reports whether the controller knows the model. Probe
// failures report false.
func modelPresent(ctx context.Context, models ModelManager, model string) bool {
	known, err := models.GetModels(ctx)
	if err != nil {
		log.Printf("listing models: %v", err)
		return false
	}
	return containsString(known, model)
}

// BootstrapConductorStep bootstraps the conductor controller onto the
// cluster substrate cloud. Discovery goes through the conductor CLI since
// no controller API exists yet at this point.
type BootstrapConductorStep struct {
	cli   *CLIRunner
	cloud string

	// controllerName records the controller found by the skip probe.
	controllerName string
}

// NewBootstrapConductorStep creates the step bootstrapping onto cloud.
func NewBootstrapConductorStep(cli *CLIRunner, cloud string) *BootstrapConductorStep {
	return &BootstrapConductorStep{cli: cli, cloud: cloud}
}

func (s *BootstrapConductorStep) Name() string        { return "bootstrap-conductor" }
func (s *BootstrapConductorStep) Description() string { return "Bootstrapping conductor controller" }

// Skip reports true when a controller already runs on a substrate cloud.
// CLI errors default to "not skippable" so bootstrap can proceed on a node
// where nothing is set up yet.
func (s *BootstrapConductorStep) Skip(ctx context.Context) bool {
	clouds, err := s.cli.Clouds(ctx)
	if err != nil {
		log.Printf("determining whether to skip controller bootstrap: %v", err)
		return false
	}
	substrate := substrateClouds(clouds)
	if len(substrate) == 0 {
		return false
	}

	controllers, err := s.cli.Controllers(ctx)
	if err != nil {
		log.Printf("listing controllers: %v", err)
		return false
	}

	// Use the first existing substrate controller we find.
	names := make([]string, 0, len(controllers))
	for name := range controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if containsString(substrate, controllers[name].Cloud) {
			s.controllerName = name
			return true
		}
	}
	return false
}

func (s *BootstrapConductorStep) Run(ctx context.Context) deploy.Result {
	clouds, err := s.cli.Clouds(ctx)
	if err != nil {
		return deploy.Fail(err.Error())
	}
	substrate := substrateClouds(clouds)
	if len(substrate) == 0 {
		return deploy.Fail("no stackmesh substrate cloud available to bootstrap")
	}
	if !containsString(substrate, s.cloud) {
		return deploy.Failf("cloud %s is not a stackmesh substrate cloud", s.cloud)
	}

	if err := s.cli.Bootstrap(ctx, s.cloud); err != nil {
		return deploy.Fail(err.Error())
	}
	return deploy.Complete()
}

func substrateClouds(clouds map[string]Cloud) []string {
	var names []string
	for name, cloud := range clouds {
		if cloud.Type == substrateCloudType {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CreateModelStep creates a deployment namespace on the controller.
type CreateModelStep struct {
	models ModelManager
	model  string
}

// NewCreateModelStep creates the step for the named model.
func NewCreateModelStep(models ModelManager, model string) *CreateModelStep {
	return &CreateModelStep{models: models, model: model}
}

func (s *CreateModelStep) Name() string { return "create-model" }

func (s *CreateModelStep) Description() string {
	return fmt.Sprintf("Creating %s model", s.model)
}

func (s *CreateModelStep) Skip(ctx context.Context) bool {
	return modelPresent(ctx, s.models, s.model)
}

func (s *CreateModelStep) Run(ctx context.Context) deploy.Result {
	if !s.models.AddModel(ctx, s.model) {
		return deploy.Failf("error in creation of model %s", s.model)
	}
	return deploy.Complete()
}

// DeployBundleStep applies a bundle of applications to a model and waits
// for every resulting unit to go active.
type DeployBundleStep struct {
	models ModelManager
	model  string
	bundle string
	name   string
}

// NewDeployBundleStep creates the step deploying the bundle at path into
// model. name labels the bundle in progress output.
func NewDeployBundleStep(models ModelManager, model, bundlePath, name string) *DeployBundleStep {
	return &DeployBundleStep{models: models, model: model, bundle: bundlePath, name: name}
}

func (s *DeployBundleStep) Name() string { return "deploy-bundle" }

func (s *DeployBundleStep) Description() string {
	return fmt.Sprintf("Deploying %s bundle", s.name)
}

// Skip reports true only when every application in the model already
// reports active. Re-deploying a half-converged bundle is destructive, so
// anything short of full convergence runs the deploy again.
func (s *DeployBundleStep) Skip(ctx context.Context) bool {
	apps, err := s.models.ApplicationStatuses(ctx, s.model)
	if err != nil {
		log.Printf("checking status of model %s: %v", s.model, err)
		return false
	}
	if len(apps) == 0 {
		return false
	}
	for _, status := range apps {
		if status != activeStatus {
			return false
		}
	}
	return true
}

func (s *DeployBundleStep) Run(ctx context.Context) deploy.Result {
	if !s.models.DeployBundle(ctx, s.model, s.bundle) {
		return deploy.Failf("error deploying bundle %s", s.name)
	}
	return deploy.Complete()
}

// DestroyModelStep removes a model, waiting for the controller to confirm
// removal.
type DestroyModelStep struct {
	models ModelManager
	model  string
}

// NewDestroyModelStep creates the step destroying the named model.
func NewDestroyModelStep(models ModelManager, model string) *DestroyModelStep {
	return &DestroyModelStep{models: models, model: model}
}

func (s *DestroyModelStep) Name() string { return "destroy-model" }

func (s *DestroyModelStep) Description() string {
	return fmt.Sprintf("Destroying model %s", s.model)
}

func (s *DestroyModelStep) Skip(ctx context.Context) bool {
	return !modelPresent(ctx, s.models, s.model)
}

func (s *DestroyModelStep) Run(ctx context.Context) deploy.Result {
	if !s.models.DestroyModel(ctx, s.model, true) {
		return deploy.Failf("error destroying model %s", s.model)
	}
	return deploy.Complete()
}

// ModelStatusStep collects the per-application status of a model into the
// step result message.
type ModelStatusStep struct {
	models  ModelManager
	model   string
	timeout time.Duration
}

// NewModelStatusStep creates the step reporting on model. timeout bounds
// the convergence poll; zero polls until the model converges.
func NewModelStatusStep(models ModelManager, model string, timeout time.Duration) *ModelStatusStep {
	return &ModelStatusStep{models: models, model: model, timeout: timeout}
}

func (s *ModelStatusStep) Name() string { return "model-status" }

func (s *ModelStatusStep) Description() string {
	return fmt.Sprintf("Retrieving status of applications in model %s", s.model)
}

func (s *ModelStatusStep) Skip(ctx context.Context) bool {
	return !modelPresent(ctx, s.models, s.model)
}

func (s *ModelStatusStep) Run(ctx context.Context) deploy.Result {
	apps := s.models.GetModelStatus(ctx, s.model, s.timeout)

	names := make([]string, 0, len(apps))
	for name := range apps {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("App %s is in %s state", name, apps[name]))
	}
	return deploy.Completef("%s", strings.Join(lines, "; "))
}

// WriteModelStatusStep dumps the full model status to a JSON file for
// inspection.
type WriteModelStatusStep struct {
	models ModelManager
	model  string
	path   string
}

// NewWriteModelStatusStep creates the step recording model status at path.
func NewWriteModelStatusStep(models ModelManager, model, path string) *WriteModelStatusStep {
	return &WriteModelStatusStep{models: models, model: model, path: path}
}

func (s *WriteModelStatusStep) Name() string { return "write-model-status" }

func (s *WriteModelStatusStep) Description() string {
	return fmt.Sprintf("Recording status of model %s", s.model)
}

func (s *WriteModelStatusStep) Skip(ctx context.Context) bool {
	return !modelPresent(ctx, s.models, s.model)
}

func (s *WriteModelStatusStep) Run(ctx context.Context) deploy.Result {
	status, err := s.models.Status(ctx, s.model)
	if err != nil {
		return deploy.Fail(err.Error())
	}
	data, err := json.MarshalIndent(status, "", "    ")
	if err != nil {
		return deploy.Fail(err.Error())
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return deploy.Fail(err.Error())
	}
	return deploy.Complete()
}
