// Package clusterd provides the client for the stackmeshd cluster daemon,
// the strongly consistent membership store nodes register with. The daemon
// exposes a REST API over a local unix socket; every error payload is
// classified into a closed fault taxonomy at this boundary.
package clusterd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Client issues requests to the stackmeshd control API over its unix
// socket. The client is stateless per call aside from the immutable socket
// address, so it is safe to reuse across steps.
type Client struct {
	socketPath string
	http       *http.Client
}

// New creates a client for the daemon listening on socketPath.
func New(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

// apiResponse is the daemon's response envelope. Successful responses carry
// the payload in metadata; failed ones carry the raw message in error.
type apiResponse struct {
	Metadata json.RawMessage `json:"metadata"`
	Error    string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	// The host is ignored by the unix socket transport.
	req, err := http.NewRequestWithContext(ctx, method, "http://stackmeshd"+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cluster daemon request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading cluster daemon response: %w", err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decoding cluster daemon response: %w", err)
		}
		return nil, fmt.Errorf("cluster daemon returned status %d", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decoded.Error != "" {
			return nil, classify(decoded.Error)
		}
		return nil, fmt.Errorf("cluster daemon returned status %d", resp.StatusCode)
	}

	return decoded.Metadata, nil
}

// Bootstrap initializes the cluster store naming this node as the first
// member. A cold daemon answers with ErrServiceUnavailable until it is
// bootstrapped.
func (c *Client) Bootstrap(ctx context.Context, name, address string) error {
	payload := map[string]any{
		"bootstrap": true,
		"name":      name,
		"address":   address,
	}
	_, err := c.do(ctx, http.MethodPost, "/cluster/control", payload)
	return err
}

// AddNode mints a one-time join token for a prospective member. Requesting
// a second token for the same name yields ErrTokenAlreadyIssued.
func (c *Client) AddNode(ctx context.Context, name, role string) (string, error) {
	payload := map[string]string{"name": name, "role": role}
	meta, err := c.do(ctx, http.MethodPost, "/cluster/1.0/tokens", payload)
	if err != nil {
		return "", err
	}

	var token string
	if err := json.Unmarshal(meta, &token); err != nil {
		return "", fmt.Errorf("decoding join token: %w", err)
	}
	return token, nil
}

// JoinNode consumes a token to register a new member under name.
func (c *Client) JoinNode(ctx context.Context, name, address, token string) error {
	payload := map[string]any{
		"join_token": token,
		"name":       name,
		"address":    address,
	}
	_, err := c.do(ctx, http.MethodPost, "/cluster/control", payload)
	return err
}

// ListMembers returns the daemon's current membership. Read-only; used by
// step idempotency probes to test membership by name.
func (c *Client) ListMembers(ctx context.Context) ([]Member, error) {
	meta, err := c.do(ctx, http.MethodGet, "/cluster/1.0/cluster", nil)
	if err != nil {
		return nil, err
	}

	var members []Member
	if err := json.Unmarshal(meta, &members); err != nil {
		return nil, fmt.Errorf("decoding cluster members: %w", err)
	}
	return members, nil
}
