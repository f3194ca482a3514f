package agent

import (
	"context"

	"github.com/stackmesh/stackmesh/internal/deploy"
)

// ActionRunner runs an action on the leader unit of an application.
// Implemented by the conductor client.
type ActionRunner interface {
	RunAction(ctx context.Context, model, app, action string, params map[string]any) map[string]any
}

// SyncConfigStep fetches one configuration section from the control plane
// by running an action on a leader unit and merges the result into the
// agent's local config, skipping when nothing changed.
type SyncConfigStep struct {
	name        string
	description string

	store   *Store
	actions ActionRunner
	model   string

	section string
	app     string
	action  string
	params  map[string]any
	// keys maps action result keys to config keys within the section.
	keys map[string]string

	// pending holds the changed values found by the skip probe.
	pending map[string]any
	// failure records a probe fault for Run to report.
	failure string
}

// Skip queries the control plane and compares against the local section.
// An unreachable control plane or a failed action is not skippable; Run
// then reports the fault.
func (s *SyncConfigStep) Skip(ctx context.Context) bool {
	s.pending = nil
	s.failure = ""

	current, err := s.store.Section(s.section)
	if err != nil {
		s.failure = err.Error()
		return false
	}

	result := s.actions.RunAction(ctx, s.model, s.app, s.action, s.params)
	if len(result) == 0 {
		s.failure = "action " + s.action + " on " + s.app + " returned no result"
		return false
	}

	pending := map[string]any{}
	for resultKey, configKey := range s.keys {
		value, ok := result[resultKey]
		if !ok {
			continue
		}
		if current[configKey] != value {
			pending[configKey] = value
		}
	}
	s.pending = pending
	return len(pending) == 0
}

func (s *SyncConfigStep) Name() string        { return s.name }
func (s *SyncConfigStep) Description() string { return s.description }

func (s *SyncConfigStep) Run(_ context.Context) deploy.Result {
	if s.failure != "" {
		return deploy.Fail(s.failure)
	}
	if len(s.pending) == 0 {
		return deploy.Complete()
	}
	if err := s.store.UpdateSection(s.section, s.pending); err != nil {
		return deploy.Fail(err.Error())
	}
	return deploy.Complete()
}

// NewSyncIdentityStep syncs the agent's identity service credentials from
// the identity application's service account.
func NewSyncIdentityStep(store *Store, actions ActionRunner, model, nodeName string) *SyncConfigStep {
	return &SyncConfigStep{
		name:        "sync-identity-config",
		description: "Updating agent identity configuration",
		store:       store,
		actions:     actions,
		model:       model,
		section:     "identity",
		app:         "keystone",
		action:      "get-service-account",
		params:      map[string]any{"username": nodeName},
		keys: map[string]string{
			"public-endpoint":     "auth-url",
			"username":            "username",
			"password":            "password",
			"user-domain-name":    "user-domain-name",
			"project-name":        "project-name",
			"project-domain-name": "project-domain-name",
			"region":              "region-name",
		},
	}
}

// NewSyncMessagingStep syncs the agent's message broker connection URL.
func NewSyncMessagingStep(store *Store, actions ActionRunner, model string) *SyncConfigStep {
	return &SyncConfigStep{
		name:        "sync-messaging-config",
		description: "Updating agent messaging configuration",
		store:       store,
		actions:     actions,
		model:       model,
		section:     "messaging",
		app:         "rabbitmq",
		action:      "get-service-account",
		params:      map[string]any{"username": "agent", "vhost": "stackmesh"},
		keys: map[string]string{
			"url": "url",
		},
	}
}

// NewSyncNetworkStep syncs the agent's southbound network database
// connection from the network relay.
func NewSyncNetworkStep(store *Store, actions ActionRunner, model string) *SyncConfigStep {
	return &SyncConfigStep{
		name:        "sync-network-config",
		description: "Updating agent network configuration",
		store:       store,
		actions:     actions,
		model:       model,
		section:     "network",
		app:         "network-relay",
		action:      "get-southbound-db-url",
		params:      map[string]any{},
		keys: map[string]string{
			"url": "sb-connection",
		},
	}
}
