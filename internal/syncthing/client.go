package syncthing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/syncflux-collector/config"
)

// ConnectionError reports that a source could not be reached or refused
// the request: transport failures, timeouts and non-2xx statuses. The
// collector treats it as fatal for the whole source in the current cycle.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("syncthing %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports that a source answered but the body could not be
// decoded into the expected shape.
type ProtocolError struct {
	Endpoint string
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("syncthing %s: decode response: %v", e.Endpoint, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Client reads the three REST endpoints a collection cycle needs from one
// Syncthing instance. Clients are cheap to build and are created fresh per
// cycle so configuration edits take effect on the next pass.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a client for one configured source. When the source is
// served over HTTPS with a custom certificate, the certificate file becomes
// the trust root for this client only.
func NewClient(cfg config.SyncthingConfig) (*Client, error) {
	scheme := "http"
	transport := &http.Transport{}
	if cfg.HTTPS {
		scheme = "https"
		tlsCfg := &tls.Config{}
		if cfg.SSLCertFile != "" {
			pem, err := os.ReadFile(cfg.SSLCertFile)
			if err != nil {
				return nil, fmt.Errorf("read ssl_cert_file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("ssl_cert_file %s: no certificates found", cfg.SSLCertFile)
			}
			tlsCfg.RootCAs = pool
		}
		transport.TLSClientConfig = tlsCfg
	}
	return &Client{
		baseURL: fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port),
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout:   cfg.Timeout.Std(),
			Transport: transport,
		},
	}, nil
}

// Topology fetches the instance's device and folder configuration.
func (c *Client) Topology(ctx context.Context) (*SystemConfig, error) {
	var out SystemConfig
	if err := c.get(ctx, "/rest/system/config", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceStats fetches per-device statistics keyed by device id. Devices
// the instance has never seen may be absent from the map.
func (c *Client) DeviceStats(ctx context.Context) (map[string]DeviceStats, error) {
	out := make(map[string]DeviceStats)
	if err := c.get(ctx, "/rest/stats/device", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FolderCompletion fetches the sync completion percentage of one folder on
// one device.
func (c *Client) FolderCompletion(ctx context.Context, deviceID, folderID string) (float64, error) {
	q := url.Values{}
	q.Set("device", deviceID)
	q.Set("folder", folderID)
	var out completionResponse
	if err := c.get(ctx, "/rest/db/completion", q, &out); err != nil {
		return 0, err
	}
	return out.Completion, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &ConnectionError{Endpoint: path, Err: err}
	}
	req.Header.Set("X-API-Key", c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return &ConnectionError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ConnectionError{Endpoint: path, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProtocolError{Endpoint: path, Err: err}
	}
	return nil
}
