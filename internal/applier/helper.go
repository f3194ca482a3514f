// Package applier drives the declarative infrastructure applier binary
// that deploys the control-plane bundle onto the workload controller.
package applier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const varsFileName = "terraform.tfvars.json"

// outputTailLines bounds how much applier output an ApplyError carries.
const outputTailLines = 20

// ApplyError is a failed applier invocation with the tail of its output.
type ApplyError struct {
	Op     string
	Output string
	Err    error
}

func (e *ApplyError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("applier %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("applier %s failed: %v: %s", e.Op, e.Err, e.Output)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Helper runs the applier binary against a single working directory.
type Helper struct {
	// Dir is the workspace holding the deployment definition.
	Dir string
	// Binary is the applier executable name or path.
	Binary string
	// Parallelism bounds concurrent resource operations during apply.
	Parallelism int

	// run executes the binary in dir; replaceable in tests.
	run func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// NewHelper creates a Helper for the given workspace directory.
func NewHelper(dir string) *Helper {
	return &Helper{
		Dir:         dir,
		Binary:      "terraform",
		Parallelism: 1,
		run: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Dir = dir
			return cmd.CombinedOutput()
		},
	}
}

// WriteVars writes the input variables file into the workspace,
// replacing any previous one.
func (h *Helper) WriteVars(vars map[string]any) error {
	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding applier vars: %w", err)
	}
	path := filepath.Join(h.Dir, varsFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing applier vars: %w", err)
	}
	return nil
}

// Init prepares the workspace, downloading providers and modules.
func (h *Helper) Init(ctx context.Context) error {
	return h.command(ctx, "init", "-upgrade", "-no-color", "-input=false")
}

// Apply applies the deployment definition without prompting.
func (h *Helper) Apply(ctx context.Context) error {
	return h.command(ctx, "apply",
		"-auto-approve", "-no-color", "-input=false",
		fmt.Sprintf("-parallelism=%d", h.Parallelism))
}

func (h *Helper) command(ctx context.Context, op string, args ...string) error {
	out, err := h.run(ctx, h.Dir, h.Binary, append([]string{op}, args...)...)
	if err != nil {
		return &ApplyError{Op: op, Output: outputTail(out), Err: err}
	}
	return nil
}

// outputTail returns the last few lines of command output, where the
// applier prints the actual cause of a failure.
func outputTail(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > outputTailLines {
		lines = lines[len(lines)-outputTailLines:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
