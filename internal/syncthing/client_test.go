package syncthing

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncflux-collector/config"
)

const systemConfigBody = `{
  "defaults": {
    "folder": {
      "id": "",
      "label": "",
      "path": "~",
      "devices": [{"deviceID": "AAAA-OWN"}]
    }
  },
  "devices": [
    {"deviceID": "AAAA-OWN", "name": "nas"},
    {"deviceID": "BBBB-REMOTE", "name": "laptop"}
  ],
  "folders": [
    {
      "id": "photos",
      "label": "Photos",
      "path": "/data/photos",
      "devices": [{"deviceID": "AAAA-OWN"}, {"deviceID": "BBBB-REMOTE"}]
    }
  ]
}`

const deviceStatsBody = `{
  "AAAA-OWN": {"lastSeen": "2025-06-01T10:00:00Z"},
  "BBBB-REMOTE": {"lastSeen": "2025-06-01T09:58:30Z"}
}`

func sourceFor(t *testing.T, srv *httptest.Server) config.SyncthingConfig {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return config.SyncthingConfig{
		Name:    "test",
		Host:    host,
		Port:    port,
		APIKey:  "secret-key",
		Timeout: config.Duration(2 * time.Second),
	}
}

func TestTopology(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		assert.Equal(t, "/rest/system/config", r.URL.Path)
		w.Write([]byte(systemConfigBody))
	}))
	defer srv.Close()

	c, err := NewClient(sourceFor(t, srv))
	require.NoError(t, err)

	cfg, err := c.Topology(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)

	require.Len(t, cfg.Defaults.Folder.Devices, 1)
	assert.Equal(t, "AAAA-OWN", cfg.Defaults.Folder.Devices[0].DeviceID)
	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, "nas", cfg.Devices[0].Name)
	require.Len(t, cfg.Folders, 1)
	assert.Equal(t, "photos", cfg.Folders[0].ID)
	assert.Equal(t, "Photos", cfg.Folders[0].Label)
	assert.Equal(t, "/data/photos", cfg.Folders[0].Path)
}

func TestDeviceStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/stats/device", r.URL.Path)
		w.Write([]byte(deviceStatsBody))
	}))
	defer srv.Close()

	c, err := NewClient(sourceFor(t, srv))
	require.NoError(t, err)

	stats, err := c.DeviceStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), stats["AAAA-OWN"].LastSeen)
}

func TestFolderCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/db/completion", r.URL.Path)
		assert.Equal(t, "BBBB-REMOTE", r.URL.Query().Get("device"))
		assert.Equal(t, "photos", r.URL.Query().Get("folder"))
		w.Write([]byte(`{"completion": 97.5}`))
	}))
	defer srv.Close()

	c, err := NewClient(sourceFor(t, srv))
	require.NoError(t, err)

	pct, err := c.FolderCompletion(context.Background(), "BBBB-REMOTE", "photos")
	require.NoError(t, err)
	assert.Equal(t, 97.5, pct)
}

func TestRejectedAPIKeyIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewClient(sourceFor(t, srv))
	require.NoError(t, err)

	_, err = c.Topology(context.Background())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "/rest/system/config", connErr.Endpoint)
	assert.Contains(t, connErr.Error(), "403")
}

func TestMalformedBodyIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"devices": [`))
	}))
	defer srv.Close()

	c, err := NewClient(sourceFor(t, srv))
	require.NoError(t, err)

	_, err = c.Topology(context.Background())
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "/rest/system/config", protoErr.Endpoint)
}

func TestUnreachableHostIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cfg := sourceFor(t, srv)
	srv.Close()

	c, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = c.DeviceStats(context.Background())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
}
