// Package deploy provides the unit-of-work abstraction for installation
// actions and the runner that sequences them into a plan.
//
// A Step models a single idempotent installation action against one of the
// external control planes (cluster daemon, conductor controller, declarative
// applier). Steps are assembled into an ordered plan by the invoking command
// and executed sequentially by a Runner, which stops at the first failure.
package deploy

import (
	"context"
	"fmt"
)

// ResultType tags the outcome of running a single step.
type ResultType int

const (
	// Completed means the step ran and its action succeeded.
	Completed ResultType = iota
	// Failed means the step ran and its action failed.
	Failed
	// Skipped means the step's idempotency probe found nothing to do.
	Skipped
)

// String returns the lower-case outcome word used in progress lines.
func (t ResultType) String() string {
	switch t {
	case Completed:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is the immutable outcome of running a step. Message carries an
// optional payload on success (a join token, a status summary) and a
// diagnostic on failure. A Failed result always has a non-empty message.
type Result struct {
	Type    ResultType
	Message string
}

// Complete returns a successful result with no payload.
func Complete() Result {
	return Result{Type: Completed}
}

// Completef returns a successful result carrying a payload message.
func Completef(format string, args ...any) Result {
	return Result{Type: Completed, Message: fmt.Sprintf(format, args...)}
}

// Fail returns a failed result. An empty message is replaced with a
// generic diagnostic so that failed results are never silent.
func Fail(message string) Result {
	if message == "" {
		message = "step failed without diagnostic"
	}
	return Result{Type: Failed, Message: message}
}

// Failf returns a failed result with a formatted diagnostic.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

// Step is a named, idempotency-aware unit of deployment work.
//
// A step is constructed with everything it needs up front and is invoked at
// most once per process run: Skip first, then Run only when Skip reported
// false. Steps are not shared across plans.
type Step interface {
	// Name returns the step's short identifier, stable across runs.
	Name() string

	// Description returns the human-readable progress description.
	Description() string

	// Skip performs a read-only idempotency probe against the relevant
	// remote system. It must never mutate remote state. A probe that fails
	// because the remote system is not yet reachable reports false, so
	// bootstrapping steps stay runnable against a cold system.
	Skip(ctx context.Context) bool

	// Run performs the side-effecting action. Faults from the remote
	// system are degraded to a Failed result with a diagnostic rather
	// than propagated.
	Run(ctx context.Context) Result
}
