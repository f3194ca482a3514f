// Package conductor provides the client for the conductor workload
// orchestration controller: the eventually consistent system managing
// models, applications, and units. The client holds a single persistent
// JSON-over-websocket connection, established lazily on first use, and
// exposes model operations plus the convergence waits the deployment steps
// rely on.
package conductor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/wait"
)

// controllerInfo is the on-disk record written when a controller is
// bootstrapped, read from <dataDir>/controller.yaml when no explicit
// endpoint is configured.
type controllerInfo struct {
	APIEndpoint string `yaml:"api-endpoint"`
	AuthToken   string `yaml:"auth-token"`
}

// Client talks to the conductor controller. The connection handle is the
// only long-lived mutable state; it is dialed at most once, guarded by the
// client's mutex, and never redialed mid-call. Disconnect is explicit and
// invoked once by the owner at shutdown.
type Client struct {
	endpoint string
	dataDir  string

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64

	// Polling cadence is coarse and fixed; these exist as fields so tests
	// can shorten them.
	pollInterval    time.Duration
	destroyInterval time.Duration
	destroyAttempts int
}

// New creates a client. endpoint may be empty, in which case the endpoint
// is read from controller.yaml under dataDir on first connect.
func New(endpoint, dataDir string) *Client {
	return &Client{
		endpoint:        endpoint,
		dataDir:         dataDir,
		pollInterval:    time.Second,
		destroyInterval: 10 * time.Second,
		destroyAttempts: 30,
	}
}

type request struct {
	ID     uint64 `json:"id"`
	Type   string `json:"type"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ensureConnectedLocked dials the controller once. Callers hold c.mu.
func (c *Client) ensureConnectedLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	endpoint := c.endpoint
	header := http.Header{}
	if endpoint == "" {
		info, err := c.readControllerInfo()
		if err != nil {
			return fmt.Errorf("resolving controller endpoint: %w", err)
		}
		endpoint = info.APIEndpoint
		if info.AuthToken != "" {
			header.Set("Authorization", "Bearer "+info.AuthToken)
		}
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return fmt.Errorf("dialing controller at %s (status %d): %w", endpoint, status, err)
	}

	c.conn = conn
	return nil
}

func (c *Client) readControllerInfo() (*controllerInfo, error) {
	path := filepath.Join(c.dataDir, "controller.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info controllerInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &info, nil
}

// call issues one request and reads its response. The whole exchange runs
// under the client mutex; the single-threaded plan runner never issues two
// calls concurrently, and the lock keeps any future concurrent steps from
// racing on the connection.
func (c *Client) call(ctx context.Context, reqType string, params, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnectedLocked(ctx); err != nil {
		return err
	}

	c.nextID++
	req := request{ID: c.nextID, Type: reqType, Params: params}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("sending %s request: %w", reqType, err)
	}

	var resp response
	if err := c.conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("reading %s response: %w", reqType, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("controller rejected %s: %s", reqType, resp.Error)
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decoding %s response: %w", reqType, err)
		}
	}
	return nil
}

// Disconnect closes the controller connection. Safe to call when never
// connected; the client must not be used afterwards.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = c.conn.Close()
	c.conn = nil
}

type modelParams struct {
	Model string `json:"model"`
}

// AddModel creates a deployment namespace. Controller faults are degraded
// to false with the cause logged; callers must check the boolean.
func (c *Client) AddModel(ctx context.Context, model string) bool {
	if err := c.call(ctx, "add-model", modelParams{Model: model}, nil); err != nil {
		log.Printf("adding model %s: %v", model, err)
		return false
	}
	return true
}

// GetModels returns the names of all models known to the controller.
func (c *Client) GetModels(ctx context.Context) ([]string, error) {
	var models []string
	if err := c.call(ctx, "list-models", nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// Status returns the controller's current view of the model. One-shot,
// no polling; the idempotency probes use this.
func (c *Client) Status(ctx context.Context, model string) (*ModelStatus, error) {
	var status ModelStatus
	if err := c.call(ctx, "model-status", modelParams{Model: model}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ApplicationStatuses returns the application name to status mapping from
// a single status query.
func (c *Client) ApplicationStatuses(ctx context.Context, model string) (map[string]string, error) {
	status, err := c.Status(ctx, model)
	if err != nil {
		return nil, err
	}
	apps := make(map[string]string, len(status.Applications))
	for name, app := range status.Applications {
		apps[name] = app.Status
	}
	return apps, nil
}

// GetModelStatus polls the model once per poll interval until every known
// application reports active or timeout elapses. A zero timeout polls until
// converged with no deadline. On timeout the mapping collected so far is
// returned; callers must not assume completeness.
func (c *Client) GetModelStatus(ctx context.Context, model string, timeout time.Duration) map[string]string {
	apps := make(map[string]string)

	condition := func(ctx context.Context) (bool, error) {
		status, err := c.Status(ctx, model)
		if err != nil {
			log.Printf("getting status of model %s: %v", model, err)
			return false, nil
		}
		allActive := len(status.Applications) > 0
		for name, app := range status.Applications {
			apps[name] = app.Status
			if app.Status != activeStatus {
				allActive = false
			}
		}
		return allActive, nil
	}

	var err error
	if timeout == 0 {
		err = wait.PollUntilContextCancel(ctx, c.pollInterval, true, condition)
	} else {
		err = wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout, true, condition)
	}
	if err != nil {
		log.Printf("timed out waiting for model %s applications to go active", model)
	}

	return apps
}

type deployParams struct {
	Model  string `json:"model"`
	Bundle string `json:"bundle"`
	Trust  bool   `json:"trust"`
}

// DeployBundle applies a declarative set of applications to the model and
// blocks until every resulting unit reports active. Faults are degraded to
// false with the cause logged.
func (c *Client) DeployBundle(ctx context.Context, model, bundlePath string) bool {
	var deployed []string
	err := c.call(ctx, "deploy-bundle", deployParams{Model: model, Bundle: bundlePath, Trust: true}, &deployed)
	if err != nil {
		log.Printf("deploying bundle to model %s: %v", model, err)
		return false
	}

	if err := c.waitUnitsActive(ctx, model, deployed); err != nil {
		log.Printf("waiting for bundle applications in model %s: %v", model, err)
		return false
	}
	return true
}

// waitUnitsActive blocks until every unit of the named applications is
// active. An empty application list means all applications in the model.
func (c *Client) waitUnitsActive(ctx context.Context, model string, applications []string) error {
	return wait.PollUntilContextCancel(ctx, c.pollInterval, true, func(ctx context.Context) (bool, error) {
		status, err := c.Status(ctx, model)
		if err != nil {
			log.Printf("getting status of model %s: %v", model, err)
			return false, nil
		}
		if len(applications) == 0 {
			return status.unitsActive(), nil
		}
		for _, name := range applications {
			app, ok := status.Applications[name]
			if !ok {
				return false, nil
			}
			for _, unit := range app.Units {
				if unit.WorkloadStatus != activeStatus {
					return false, nil
				}
			}
		}
		return true, nil
	})
}

// WaitUntilActive blocks until all units of all applications in the model
// report active. Unbounded by design; only used during initial
// control-plane bring-up, where cancellation comes from the caller's
// context.
func (c *Client) WaitUntilActive(ctx context.Context, model string) error {
	return c.waitUnitsActive(ctx, model, nil)
}

type destroyParams struct {
	Model          string `json:"model"`
	DestroyStorage bool   `json:"destroy-storage"`
	Force          bool   `json:"force"`
}

// DestroyModel requests destruction of the model. With waitRemoved set it
// re-polls the model list up to the fixed retry budget to confirm removal;
// exhausting the budget is a failure, not a hang.
func (c *Client) DestroyModel(ctx context.Context, model string, waitRemoved bool) bool {
	err := c.call(ctx, "destroy-model", destroyParams{Model: model, DestroyStorage: true, Force: true}, nil)
	if err != nil {
		log.Printf("destroying model %s: %v", model, err)
		return false
	}
	if !waitRemoved {
		return true
	}

	for attempt := 0; attempt < c.destroyAttempts; attempt++ {
		models, err := c.GetModels(ctx)
		if err == nil && !containsString(models, model) {
			return true
		}
		log.Printf("model %s still present", model)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.destroyInterval):
		}
	}
	return false
}

type actionParams struct {
	Model  string         `json:"model"`
	Unit   string         `json:"unit"`
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// RunAction invokes a named action on the current leader unit of app,
// located by live status query, and waits for its result. An empty mapping
// comes back when no leader can be found or the action fails; faults are
// logged, never raised.
func (c *Client) RunAction(ctx context.Context, model, app, action string, params map[string]any) map[string]any {
	results := map[string]any{}

	status, err := c.Status(ctx, model)
	if err != nil {
		log.Printf("getting status of model %s: %v", model, err)
		return results
	}
	appStatus, ok := status.Applications[app]
	if !ok {
		log.Printf("application %s not found in model %s", app, model)
		return results
	}

	leader := ""
	for unit, st := range appStatus.Units {
		if st.Leader {
			leader = unit
			break
		}
	}
	if leader == "" {
		return results
	}

	log.Printf("running action %s on %s leader unit %s", action, app, leader)
	var out map[string]any
	if err := c.call(ctx, "run-action", actionParams{Model: model, Unit: leader, Action: action, Params: params}, &out); err != nil {
		log.Printf("running action %s on %s: %v", action, leader, err)
		return results
	}
	if out == nil {
		return results
	}
	return out
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
