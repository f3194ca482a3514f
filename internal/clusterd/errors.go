package clusterd

import (
	"errors"
	"fmt"
	"strings"
)

// Faults translated from stackmeshd error payloads. Everything above the
// client deals only in these sentinels plus the unclassified case.
var (
	// ErrNodeAlreadyExists is returned when a join is requested for a name
	// that is already a cluster member.
	ErrNodeAlreadyExists = errors.New("node already exists in the stackmesh cluster")

	// ErrNodeJoinFailed is returned when the daemon rejects a join because
	// the token is invalid, expired, or already consumed.
	ErrNodeJoinFailed = errors.New("node failed to join the cluster with the given token")

	// ErrTokenAlreadyIssued is returned when a join token was already
	// minted for the node name. At most one token per name is outstanding.
	ErrTokenAlreadyIssued = errors.New("join token already issued for the node")

	// ErrServiceUnavailable is returned when the cluster daemon is not yet
	// initialized. This is the expected state on a cold node; callers treat
	// it as "not yet bootstrapped", not as fatal.
	ErrServiceUnavailable = errors.New("stackmesh cluster daemon not initialized")
)

type rule struct {
	pattern string
	err     error
}

// Classification table for raw daemon error messages. Matched in order,
// first match wins: some daemon messages can textually satisfy more than
// one pattern and the order below is the tie-break.
var rules = []rule{
	{"remote with name", ErrNodeAlreadyExists},
	{"Failed to join cluster with the given join token", ErrNodeJoinFailed},
	{"UNIQUE constraint failed: internal_token_records.name", ErrTokenAlreadyIssued},
	{"Daemon not yet initialized", ErrServiceUnavailable},
}

// classify maps a raw error message from the daemon onto one of the
// sentinel faults, preserving the original message as context. Messages
// matching no rule come back as a plain error, unclassified.
func classify(message string) error {
	for _, r := range rules {
		if strings.Contains(message, r.pattern) {
			return fmt.Errorf("%w: %s", r.err, message)
		}
	}
	return fmt.Errorf("cluster daemon error: %s", message)
}
