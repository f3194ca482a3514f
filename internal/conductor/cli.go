package conductor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// substrateCloudType is the cloud type the controller can bootstrap onto:
// the stackmesh cluster substrate formed by the daemon.
const substrateCloudType = "stackmesh"

// Cloud is one entry of the CLI's cloud listing.
type Cloud struct {
	Type string `json:"type"`
}

// ControllerRecord is one entry of the CLI's controller listing.
type ControllerRecord struct {
	Cloud string `json:"cloud"`
}

// CLIRunner invokes the conductor command line with JSON output. Used for
// controller bootstrap and cloud discovery, which the controller API itself
// does not expose before a controller exists.
type CLIRunner struct {
	binary string

	// run executes the binary; replaceable in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewCLIRunner creates a runner for the named conductor binary.
func NewCLIRunner(binary string) *CLIRunner {
	return &CLIRunner{
		binary: binary,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			out, err := exec.CommandContext(ctx, name, args...).Output()
			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
					return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err,
						strings.TrimSpace(string(exitErr.Stderr)))
				}
				return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
			}
			return out, nil
		},
	}
}

// command runs a subcommand with --format json and decodes its output.
func (r *CLIRunner) command(ctx context.Context, result any, args ...string) error {
	args = append(args, "--format", "json")
	out, err := r.run(ctx, r.binary, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(out))), result); err != nil {
		return fmt.Errorf("decoding %s output: %w", strings.Join(args, " "), err)
	}
	return nil
}

// Clouds returns the clouds known to the CLI, keyed by name.
func (r *CLIRunner) Clouds(ctx context.Context) (map[string]Cloud, error) {
	var clouds map[string]Cloud
	if err := r.command(ctx, &clouds, "clouds"); err != nil {
		return nil, err
	}
	return clouds, nil
}

// Controllers returns the registered controllers, keyed by name.
func (r *CLIRunner) Controllers(ctx context.Context) (map[string]ControllerRecord, error) {
	var listing struct {
		Controllers map[string]ControllerRecord `json:"controllers"`
	}
	if err := r.command(ctx, &listing, "controllers"); err != nil {
		return nil, err
	}
	return listing.Controllers, nil
}

// Bootstrap bootstraps a controller onto the named cloud.
func (r *CLIRunner) Bootstrap(ctx context.Context, cloud string) error {
	_, err := r.run(ctx, r.binary, "bootstrap", cloud)
	return err
}
