package clusterd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon emulates the stackmeshd control API, including the raw error
// messages that the client's classification table matches against.
type fakeDaemon struct {
	mu          sync.Mutex
	initialized bool
	members     []Member
	tokens      map[string]string
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{tokens: make(map[string]string)}
}

func (d *fakeDaemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch r.URL.Path {
	case "/cluster/control":
		d.control(w, r)
	case "/cluster/1.0/tokens":
		d.mintToken(w, r)
	case "/cluster/1.0/cluster":
		d.listMembers(w)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (d *fakeDaemon) control(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Bootstrap bool   `json:"bootstrap"`
		JoinToken string `json:"join_token"`
		Name      string `json:"name"`
		Address   string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	if body.Bootstrap {
		d.initialized = true
		d.members = append(d.members, Member{Name: body.Name, Address: body.Address, Status: "ONLINE"})
		writeMetadata(w, nil)
		return
	}

	// Join path.
	for _, m := range d.members {
		if m.Name == body.Name {
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("A remote with name %q already exists", body.Name))
			return
		}
	}
	if d.tokens[body.Name] != body.JoinToken {
		writeError(w, http.StatusInternalServerError,
			"Failed to join cluster with the given join token")
		return
	}
	delete(d.tokens, body.Name)
	d.members = append(d.members, Member{Name: body.Name, Address: body.Address, Status: "ONLINE"})
	writeMetadata(w, nil)
}

func (d *fakeDaemon) mintToken(w http.ResponseWriter, r *http.Request) {
	if !d.initialized {
		writeError(w, http.StatusServiceUnavailable, "Daemon not yet initialized")
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if _, exists := d.tokens[body.Name]; exists {
		writeError(w, http.StatusInternalServerError,
			"UNIQUE constraint failed: internal_token_records.name")
		return
	}
	token := "token-" + body.Name
	d.tokens[body.Name] = token
	writeMetadata(w, token)
}

func (d *fakeDaemon) listMembers(w http.ResponseWriter) {
	if !d.initialized {
		writeError(w, http.StatusServiceUnavailable, "Daemon not yet initialized")
		return
	}
	writeMetadata(w, d.members)
}

func writeMetadata(w http.ResponseWriter, metadata any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"metadata": metadata})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

// startDaemon serves handler on a unix socket and returns a client for it.
func startDaemon(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "control.socket")
	ln, err := net.Listen("unix", socket)
	require.NoError(t, err)

	srv := &http.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	return New(socket)
}

func TestListMembersOnColdDaemon(t *testing.T) {
	t.Parallel()

	client := startDaemon(t, newFakeDaemon())
	_, err := client.ListMembers(context.Background())
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestBootstrapRegistersFirstMember(t *testing.T) {
	t.Parallel()

	client := startDaemon(t, newFakeDaemon())
	ctx := context.Background()

	require.NoError(t, client.Bootstrap(ctx, "node-a", "10.0.0.5:7000"))

	members, err := client.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "node-a", members[0].Name)
	assert.Equal(t, "10.0.0.5:7000", members[0].Address)
}

func TestAddNodeTwiceFailsWithTokenAlreadyIssued(t *testing.T) {
	t.Parallel()

	client := startDaemon(t, newFakeDaemon())
	ctx := context.Background()
	require.NoError(t, client.Bootstrap(ctx, "node-a", "10.0.0.5:7000"))

	token, err := client.AddNode(ctx, "node-b", "compute")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = client.AddNode(ctx, "node-b", "compute")
	assert.ErrorIs(t, err, ErrTokenAlreadyIssued)
}

func TestJoinNodeConsumesToken(t *testing.T) {
	t.Parallel()

	client := startDaemon(t, newFakeDaemon())
	ctx := context.Background()
	require.NoError(t, client.Bootstrap(ctx, "node-a", "10.0.0.5:7000"))

	token, err := client.AddNode(ctx, "node-b", "compute")
	require.NoError(t, err)

	require.NoError(t, client.JoinNode(ctx, "node-b", "10.0.0.6:7000", token))

	members, err := client.ListMembers(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, "node-b")

	// The consumed token no longer joins anything.
	err = client.JoinNode(ctx, "node-c", "10.0.0.7:7000", token)
	assert.ErrorIs(t, err, ErrNodeJoinFailed)
}

func TestJoinNodeExistingMember(t *testing.T) {
	t.Parallel()

	client := startDaemon(t, newFakeDaemon())
	ctx := context.Background()
	require.NoError(t, client.Bootstrap(ctx, "node-a", "10.0.0.5:7000"))

	err := client.JoinNode(ctx, "node-a", "10.0.0.5:7000", "whatever")
	assert.ErrorIs(t, err, ErrNodeAlreadyExists)
}

func TestJoinNodeBadToken(t *testing.T) {
	t.Parallel()

	client := startDaemon(t, newFakeDaemon())
	ctx := context.Background()
	require.NoError(t, client.Bootstrap(ctx, "node-a", "10.0.0.5:7000"))

	err := client.JoinNode(ctx, "node-b", "10.0.0.6:7000", "bogus")
	assert.ErrorIs(t, err, ErrNodeJoinFailed)
}
