// Package nodeapi talks to the REST API of a running Ergo node.
package nodeapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"github.com/ruteri/ergo-devnet-provisioning/nodeconfig"
)

// APIKeyHeader carries the plaintext secret on authenticated requests.
const APIKeyHeader = "api_key"

// DefaultCheckPath is an endpoint the node only serves to clients presenting a valid key.
const DefaultCheckPath = "/wallet/status"

// Client is a minimal client for a single node's REST API.
type Client struct {
	// BaseURL of the node API, e.g. http://localhost:9500
	BaseURL string

	// HTTPClient used for requests. http.DefaultClient when nil.
	HTTPClient *http.Client
}

// KeyCheckResult describes how the node answered an authenticated request.
type KeyCheckResult struct {
	URL        string
	StatusCode int
	Accepted   bool
	Duration   time.Duration
}

// NewClientForNode returns a client for node id published on host.
func NewClientForNode(host string, ports nodeconfig.Ports, id interfaces.NodeID) *Client {
	return &Client{
		BaseURL:    fmt.Sprintf("http://%s:%d", host, ports.APIPort(id)),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CheckKey sends a GET to path with the secret in the api_key header.
// A 200 means the node accepted the key, 401 or 403 that it rejected it.
// Any other status or a transport failure is returned as an error.
func (c *Client) CheckKey(ctx context.Context, path, secret string) (*KeyCheckResult, error) {
	if path == "" {
		path = DefaultCheckPath
	}
	url := strings.TrimSuffix(c.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(APIKeyHeader, secret)
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach node API at %s: %w", url, err)
	}
	defer resp.Body.Close()

	result := &KeyCheckResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	}

	switch resp.StatusCode {
	case http.StatusOK:
		result.Accepted = true
		return result, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return result, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return result, fmt.Errorf("node API returned unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// CurlHint returns a command an operator can paste to query the node by hand.
func CurlHint(host string, port int, secret string) string {
	return fmt.Sprintf("curl -H '%s: %s' http://%s:%d/info", APIKeyHeader, secret, host, port)
}

// CurlHintFromFile is like CurlHint but has the shell read the key from keyPath,
// keeping the secret out of terminal output.
func CurlHintFromFile(host string, port int, keyPath string) string {
	return fmt.Sprintf(`curl -H "%s: $(cat '%s')" http://%s:%d/info`, APIKeyHeader, keyPath, host, port)
}
