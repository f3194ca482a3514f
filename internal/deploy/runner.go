package deploy

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/stackmesh/stackmesh/internal/ui"
)

// Outcome records the result of one step of an executed plan, in plan order.
type Outcome struct {
	Step        string
	Description string
	Result      Result
}

// Runner executes a plan of steps strictly in list order, applying
// skip-then-run semantics and stopping at the first failure. The runner
// performs no retries; retry policy, where needed, lives inside a step's
// own Run.
type Runner struct {
	out      io.Writer
	observer Observer
}

// NewRunner creates a runner writing progress lines to out. A nil out
// defaults to stdout; a nil observer defaults to the console observer.
func NewRunner(out io.Writer, observer Observer) *Runner {
	if out == nil {
		out = os.Stdout
	}
	if observer == nil {
		observer = NewConsoleObserver()
	}
	return &Runner{out: out, observer: observer}
}

// Execute runs the plan. It returns the per-step outcomes collected so far
// and, when a step fails, an error naming the failing step and its
// diagnostic. Steps after a failed step are never invoked.
func (r *Runner) Execute(ctx context.Context, plan []Step) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(plan))

	for i, step := range plan {
		r.observer.Printf("[%s] (%d/%d) starting", step.Name(), i+1, len(plan))

		if step.Skip(ctx) {
			r.observer.Printf("[%s] skipped", step.Name())
			outcomes = append(outcomes, r.report(step, Result{Type: Skipped}))
			continue
		}

		result := r.runStep(ctx, step)
		outcomes = append(outcomes, r.report(step, result))

		if result.Type == Failed {
			return outcomes, fmt.Errorf("%s: %s", step.Name(), result.Message)
		}
	}

	return outcomes, nil
}

// runStep invokes a step's Run, converting a panic into a Failed result so
// a misbehaving step stops the plan instead of crashing the process.
func (r *Runner) runStep(ctx context.Context, step Step) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.observer.Printf("[%s] panic: %v", step.Name(), rec)
			result = Failf("%s panicked: %v", step.Name(), rec)
		}
	}()
	return step.Run(ctx)
}

// report emits the single human-readable progress line for a finished step
// and returns its outcome record.
func (r *Runner) report(step Step, result Result) Outcome {
	word := result.Type.String()
	switch result.Type {
	case Completed:
		word = ui.Done(word)
	case Failed:
		word = ui.Failed(word)
	case Skipped:
		word = ui.Dim(word)
	}
	fmt.Fprintf(r.out, "%s ... %s\n", step.Description(), word)

	return Outcome{Step: step.Name(), Description: step.Description(), Result: result}
}
