package clusterd

import (
	"context"
	"errors"
	"log"

	"github.com/stackmesh/stackmesh/internal/deploy"
)

// API is the subset of daemon operations the membership steps need.
// Implemented by *Client; tests substitute a fake.
type API interface {
	Bootstrap(ctx context.Context, name, address string) error
	AddNode(ctx context.Context, name, role string) (string, error)
	JoinNode(ctx context.Context, name, address, token string) error
	ListMembers(ctx context.Context) ([]Member, error)
}

// memberExists reports whether name is already a cluster member. Probe
// failures, including the daemon not yet being initialized, report false so
// that bootstrapping steps remain runnable against a cold system.
func memberExists(ctx context.Context, api API, name string) bool {
	members, err := api.ListMembers(ctx)
	if err != nil {
		if errors.Is(err, ErrServiceUnavailable) {
			log.Printf("cluster daemon not yet initialized: %v", err)
		} else {
			log.Printf("listing cluster members: %v", err)
		}
		return false
	}

	for _, m := range members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// ClusterInitStep bootstraps clustering on the local node, making it the
// first member of the cluster store.
type ClusterInitStep struct {
	api     API
	fqdn    string
	address string
}

// NewClusterInitStep creates the step for the node named fqdn, advertising
// address (host:port) to future members.
func NewClusterInitStep(api API, fqdn, address string) *ClusterInitStep {
	return &ClusterInitStep{api: api, fqdn: fqdn, address: address}
}

func (s *ClusterInitStep) Name() string        { return "bootstrap-cluster" }
func (s *ClusterInitStep) Description() string { return "Bootstrapping stackmesh cluster" }

func (s *ClusterInitStep) Skip(ctx context.Context) bool {
	return memberExists(ctx, s.api, s.fqdn)
}

func (s *ClusterInitStep) Run(ctx context.Context) deploy.Result {
	if err := s.api.Bootstrap(ctx, s.fqdn, s.address); err != nil {
		return deploy.Fail(err.Error())
	}
	return deploy.Complete()
}

// ClusterAddNodeStep mints a join token for a new node. The token is
// single-use; minting twice for the same name fails with
// ErrTokenAlreadyIssued, which surfaces as a failed result.
type ClusterAddNodeStep struct {
	api      API
	nodeName string
	role     string
}

// NewClusterAddNodeStep creates the step minting a token for nodeName.
func NewClusterAddNodeStep(api API, nodeName, role string) *ClusterAddNodeStep {
	return &ClusterAddNodeStep{api: api, nodeName: nodeName, role: role}
}

func (s *ClusterAddNodeStep) Name() string { return "add-node" }

func (s *ClusterAddNodeStep) Description() string {
	return "Generating token for new node to join the cluster"
}

func (s *ClusterAddNodeStep) Skip(ctx context.Context) bool {
	return memberExists(ctx, s.api, s.nodeName)
}

func (s *ClusterAddNodeStep) Run(ctx context.Context) deploy.Result {
	token, err := s.api.AddNode(ctx, s.nodeName, s.role)
	if err != nil {
		return deploy.Fail(err.Error())
	}
	return deploy.Completef("%s", token)
}

// ClusterJoinNodeStep registers the local node with an existing cluster
// using a previously minted token.
type ClusterJoinNodeStep struct {
	api     API
	fqdn    string
	address string
	token   string
}

// NewClusterJoinNodeStep creates the step joining the node named fqdn at
// address (host:port) using token.
func NewClusterJoinNodeStep(api API, fqdn, address, token string) *ClusterJoinNodeStep {
	return &ClusterJoinNodeStep{api: api, fqdn: fqdn, address: address, token: token}
}

func (s *ClusterJoinNodeStep) Name() string        { return "join-cluster" }
func (s *ClusterJoinNodeStep) Description() string { return "Joining node to stackmesh cluster" }

func (s *ClusterJoinNodeStep) Skip(ctx context.Context) bool {
	return memberExists(ctx, s.api, s.fqdn)
}

func (s *ClusterJoinNodeStep) Run(ctx context.Context) deploy.Result {
	err := s.api.JoinNode(ctx, s.fqdn, s.address, s.token)
	if err == nil {
		return deploy.Completef("%s", s.token)
	}

	// An existing member is a failure here, not an idempotent success: the
	// skip probe already handles the joined case, so reaching this point
	// with ErrNodeAlreadyExists means the name is taken by another node.
	if errors.Is(err, ErrNodeAlreadyExists) || errors.Is(err, ErrNodeJoinFailed) {
		return deploy.Failf("join with token %q failed: %v", s.token, err)
	}
	return deploy.Fail(err.Error())
}
