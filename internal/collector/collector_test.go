package collector

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncflux-collector/config"
	"github.com/syncflux-collector/internal/metrics"
	"github.com/syncflux-collector/internal/syncthing"
)

// stubSource serves canned API responses and fails on demand.
type stubSource struct {
	topology      *syncthing.SystemConfig
	topologyErr   error
	stats         map[string]syncthing.DeviceStats
	statsErr      error
	completions   map[string]float64
	completionErr map[string]error
	gotOwnID      []string
}

func (s *stubSource) Topology(ctx context.Context) (*syncthing.SystemConfig, error) {
	if s.topologyErr != nil {
		return nil, s.topologyErr
	}
	return s.topology, nil
}

func (s *stubSource) DeviceStats(ctx context.Context) (map[string]syncthing.DeviceStats, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return s.stats, nil
}

func (s *stubSource) FolderCompletion(ctx context.Context, deviceID, folderID string) (float64, error) {
	s.gotOwnID = append(s.gotOwnID, deviceID)
	if err := s.completionErr[folderID]; err != nil {
		return 0, err
	}
	return s.completions[folderID], nil
}

func newTestMetrics() *metrics.AgentMetrics {
	return metrics.NewAgentMetrics(metrics.NewMetricFactory(metrics.NewPromRegistry(prometheus.NewRegistry())))
}

func homeTopology() *syncthing.SystemConfig {
	return &syncthing.SystemConfig{
		Defaults: syncthing.DefaultsConfig{
			Folder: syncthing.FolderConfig{
				Devices: []syncthing.FolderDevice{{DeviceID: "OWN"}},
			},
		},
		Devices: []syncthing.DeviceConfig{
			{DeviceID: "OWN", Name: "nas"},
			{DeviceID: "DEV1", Name: "laptop"},
			{DeviceID: "DEV2", Name: "phone"},
		},
		Folders: []syncthing.FolderConfig{
			{ID: "photos", Label: "Photos", Path: "/data/photos"},
		},
	}
}

func homeSource() config.SyncthingConfig {
	return config.SyncthingConfig{
		Name:    "home",
		Host:    "localhost",
		Port:    8384,
		APIKey:  "k",
		Timeout: config.Duration(10 * time.Second),
	}
}

func TestCollectHomeScenario(t *testing.T) {
	lastSeen1 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	lastSeen2 := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	stub := &stubSource{
		topology: homeTopology(),
		stats: map[string]syncthing.DeviceStats{
			"OWN":  {LastSeen: time.Now().UTC()},
			"DEV1": {LastSeen: lastSeen1},
			"DEV2": {LastSeen: lastSeen2},
		},
		completions: map[string]float64{"photos": 98.5},
	}

	before := time.Now().UTC()
	pts, err := New(homeSource(), stub, config.MeasurementConfig{Devices: "st_device", Folders: "st_folder"}, newTestMetrics()).Collect(context.Background())
	after := time.Now().UTC()
	require.NoError(t, err)
	require.Len(t, pts, 3)

	// Device points come first, in topology order, then folder points.
	assert.Equal(t, "st_device", pts[0].Measurement)
	assert.Equal(t, "st_device", pts[1].Measurement)
	assert.Equal(t, "st_folder", pts[2].Measurement)

	assert.Equal(t, map[string]string{
		"cfg_name": "home",
		"my_id":    "OWN",
		"my_name":  "nas",
		"id":       "DEV1",
		"name":     "laptop",
	}, pts[0].Tags)
	assert.Equal(t, map[string]string{
		"cfg_name": "home",
		"my_id":    "OWN",
		"my_name":  "nas",
		"id":       "photos",
		"label":    "Photos",
		"path":     "/data/photos",
	}, pts[2].Tags)

	// One capture instant per cycle, stamped on every point.
	for _, p := range pts {
		assert.Equal(t, pts[0].Time, p.Time)
		assert.False(t, p.Time.Before(before))
		assert.False(t, p.Time.After(after))
	}

	assert.Equal(t, pts[0].Time.Sub(lastSeen1).Seconds(), pts[0].Fields["last_seen_since_sec"])
	assert.Equal(t, pts[0].Time.Sub(lastSeen2).Seconds(), pts[1].Fields["last_seen_since_sec"])
	assert.Equal(t, 98.5, pts[2].Fields["completion"])

	// The completion query runs against the own device.
	assert.Equal(t, []string{"OWN"}, stub.gotOwnID)

	qElapsed, ok := pts[0].Fields["q_elapsed"]
	require.True(t, ok)
	for _, p := range pts {
		assert.Equal(t, qElapsed, p.Fields["q_elapsed"])
	}
}

func TestStaticTagsMergeButCannotRenameSource(t *testing.T) {
	stub := &stubSource{
		topology:    homeTopology(),
		stats:       map[string]syncthing.DeviceStats{"DEV1": {}, "DEV2": {}},
		completions: map[string]float64{"photos": 100},
	}
	src := homeSource()
	src.Tags = map[string]string{"cfg_name": "evil", "site": "lab"}

	pts, err := New(src, stub, config.MeasurementConfig{Devices: "st_device", Folders: "st_folder"}, newTestMetrics()).Collect(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, pts)
	for _, p := range pts {
		assert.Equal(t, "home", p.Tags["cfg_name"])
		assert.Equal(t, "lab", p.Tags["site"])
	}
}

func TestMissingStatsSkipsDeviceOnly(t *testing.T) {
	stub := &stubSource{
		topology:    homeTopology(),
		stats:       map[string]syncthing.DeviceStats{"DEV1": {LastSeen: time.Now().UTC()}},
		completions: map[string]float64{"photos": 50},
	}

	pts, err := New(homeSource(), stub, config.MeasurementConfig{Devices: "st_device", Folders: "st_folder"}, newTestMetrics()).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, "DEV1", pts[0].Tags["id"])
	assert.Equal(t, "st_folder", pts[1].Measurement)
}

func TestCompletionFailureSkipsFolderOnly(t *testing.T) {
	topo := homeTopology()
	topo.Folders = append(topo.Folders, syncthing.FolderConfig{ID: "docs", Label: "Docs", Path: "/data/docs"})
	stub := &stubSource{
		topology:      topo,
		stats:         map[string]syncthing.DeviceStats{"DEV1": {}, "DEV2": {}},
		completions:   map[string]float64{"docs": 75},
		completionErr: map[string]error{"photos": &syncthing.ConnectionError{Endpoint: "/rest/db/completion", Err: context.DeadlineExceeded}},
	}

	pts, err := New(homeSource(), stub, config.MeasurementConfig{Devices: "st_device", Folders: "st_folder"}, newTestMetrics()).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, "docs", pts[2].Tags["id"])
	assert.Equal(t, 75.0, pts[2].Fields["completion"])
}

func TestTopologyFailureAbortsSource(t *testing.T) {
	wireErr := &syncthing.ConnectionError{Endpoint: "/rest/system/config", Err: context.DeadlineExceeded}
	stub := &stubSource{topologyErr: wireErr}

	pts, err := New(homeSource(), stub, config.MeasurementConfig{Devices: "st_device", Folders: "st_folder"}, newTestMetrics()).Collect(context.Background())
	assert.Nil(t, pts)
	var connErr *syncthing.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, err.Error(), "home")
}

func TestDeviceStatsFailureAbortsSource(t *testing.T) {
	stub := &stubSource{
		topology: homeTopology(),
		statsErr: &syncthing.ProtocolError{Endpoint: "/rest/stats/device", Err: context.DeadlineExceeded},
	}

	pts, err := New(homeSource(), stub, config.MeasurementConfig{Devices: "st_device", Folders: "st_folder"}, newTestMetrics()).Collect(context.Background())
	assert.Nil(t, pts)
	var protoErr *syncthing.ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestNoOwnDeviceAbortsSource(t *testing.T) {
	topo := homeTopology()
	topo.Defaults.Folder.Devices = nil
	stub := &stubSource{topology: topo}

	pts, err := New(homeSource(), stub, config.MeasurementConfig{Devices: "st_device", Folders: "st_folder"}, newTestMetrics()).Collect(context.Background())
	assert.Nil(t, pts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "own device")
}

func TestEmptyTopologyEmitsNoPoints(t *testing.T) {
	stub := &stubSource{
		topology: &syncthing.SystemConfig{
			Defaults: syncthing.DefaultsConfig{
				Folder: syncthing.FolderConfig{Devices: []syncthing.FolderDevice{{DeviceID: "OWN"}}},
			},
			Devices: []syncthing.DeviceConfig{{DeviceID: "OWN", Name: "nas"}},
		},
		stats: map[string]syncthing.DeviceStats{},
	}

	pts, err := New(homeSource(), stub, config.MeasurementConfig{Devices: "st_device", Folders: "st_folder"}, newTestMetrics()).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pts)
}
