package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/syncflux-collector/config"
	"github.com/syncflux-collector/internal/metrics"
	"github.com/syncflux-collector/internal/point"
	"github.com/syncflux-collector/internal/syncthing"
	"github.com/syncflux-collector/pkg/logger"
)

// Source is the read surface of one Syncthing instance. Implemented by
// syncthing.Client; tests substitute a stub.
type Source interface {
	Topology(ctx context.Context) (*syncthing.SystemConfig, error)
	DeviceStats(ctx context.Context) (map[string]syncthing.DeviceStats, error)
	FolderCompletion(ctx context.Context, deviceID, folderID string) (float64, error)
}

// MissingStatsError marks a device the instance knows but has no
// statistics entry for. The device is skipped; the source continues.
type MissingStatsError struct {
	DeviceID   string
	DeviceName string
}

func (e *MissingStatsError) Error() string {
	return fmt.Sprintf("device %s (%s): no stats entry", e.DeviceName, e.DeviceID)
}

// CompletionError marks a folder whose completion query failed. The folder
// is skipped; the source continues.
type CompletionError struct {
	FolderID string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("folder %s: completion query: %v", e.FolderID, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// remoteDevice is the per-cycle snapshot of one remote device.
type remoteDevice struct {
	id            string
	name          string
	lastSeenSince float64
}

// folderStatus is the per-cycle snapshot of one synced folder.
type folderStatus struct {
	id         string
	label      string
	path       string
	completion float64
}

// Collector turns one source's health data into measurement points for one
// cycle. Instances are built fresh every pass; the shared metrics bundle is
// the only state that outlives them.
type Collector struct {
	source       config.SyncthingConfig
	client       Source
	measurements config.MeasurementConfig
	metrics      *metrics.AgentMetrics
}

// New creates a collector for one configured source.
func New(source config.SyncthingConfig, client Source, measurements config.MeasurementConfig, m *metrics.AgentMetrics) *Collector {
	return &Collector{
		source:       source,
		client:       client,
		measurements: measurements,
		metrics:      m,
	}
}

// Collect queries the source and returns its points, device points first,
// then folder points. Every point carries the same capture instant and the
// same q_elapsed field value. A topology or stats failure aborts the whole
// source with no partial points; per-device and per-folder failures only
// drop the affected entity.
func (c *Collector) Collect(ctx context.Context) ([]point.Point, error) {
	start := time.Now()
	defer func() {
		c.metrics.CollectDuration.WithLabelValues(c.source.Name).Observe(time.Since(start).Seconds())
	}()

	// Static tags may add context but never rename the owning source.
	proto := point.MergeTags(map[string]string{point.TagConfigName: c.source.Name}, c.source.Tags)

	now := start.UTC()

	topo, err := c.client.Topology(ctx)
	if err != nil {
		c.metrics.CollectErrors.WithLabelValues(c.source.Name).Inc()
		return nil, fmt.Errorf("source %s: topology: %w", c.source.Name, err)
	}

	if len(topo.Defaults.Folder.Devices) == 0 {
		c.metrics.CollectErrors.WithLabelValues(c.source.Name).Inc()
		return nil, fmt.Errorf("source %s: cannot determine own device id from default folder", c.source.Name)
	}
	ownID := topo.Defaults.Folder.Devices[0].DeviceID
	var ownName string
	for _, dev := range topo.Devices {
		if dev.DeviceID == ownID {
			ownName = dev.Name
			break
		}
	}
	proto[point.TagOwnID] = ownID
	proto[point.TagOwnName] = ownName

	stats, err := c.client.DeviceStats(ctx)
	if err != nil {
		c.metrics.CollectErrors.WithLabelValues(c.source.Name).Inc()
		return nil, fmt.Errorf("source %s: device stats: %w", c.source.Name, err)
	}

	var devices []remoteDevice
	for _, dev := range topo.Devices {
		if dev.DeviceID == ownID {
			continue
		}
		st, ok := stats[dev.DeviceID]
		if !ok {
			c.metrics.CollectErrors.WithLabelValues(c.source.Name).Inc()
			logger.Error("skipping device",
				zap.String("source", c.source.Name),
				zap.Error(&MissingStatsError{DeviceID: dev.DeviceID, DeviceName: dev.Name}))
			continue
		}
		devices = append(devices, remoteDevice{
			id:            dev.DeviceID,
			name:          dev.Name,
			lastSeenSince: now.Sub(st.LastSeen).Seconds(),
		})
	}

	var folders []folderStatus
	for _, folder := range topo.Folders {
		completion, err := c.client.FolderCompletion(ctx, ownID, folder.ID)
		if err != nil {
			c.metrics.CollectErrors.WithLabelValues(c.source.Name).Inc()
			logger.Error("skipping folder",
				zap.String("source", c.source.Name),
				zap.Error(&CompletionError{FolderID: folder.ID, Err: err}))
			continue
		}
		folders = append(folders, folderStatus{
			id:         folder.ID,
			label:      folder.Label,
			path:       folder.Path,
			completion: completion,
		})
	}

	// Every point of this cycle carries the same query-elapsed value.
	protoFields := map[string]float64{"q_elapsed": time.Since(start).Seconds()}

	points := make([]point.Point, 0, len(devices)+len(folders))
	for _, dev := range devices {
		p, err := point.New(
			c.measurements.Devices,
			point.MergeTags(proto, map[string]string{
				point.TagID:   dev.id,
				point.TagName: dev.name,
			}),
			point.MergeFields(protoFields, map[string]float64{
				"last_seen_since_sec": dev.lastSeenSince,
			}),
			now,
		)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", c.source.Name, err)
		}
		points = append(points, p)
	}
	for _, folder := range folders {
		p, err := point.New(
			c.measurements.Folders,
			point.MergeTags(proto, map[string]string{
				point.TagID:    folder.id,
				point.TagLabel: folder.label,
				point.TagPath:  folder.path,
			}),
			point.MergeFields(protoFields, map[string]float64{
				"completion": folder.completion,
			}),
			now,
		)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", c.source.Name, err)
		}
		points = append(points, p)
	}

	c.metrics.PointsEmitted.WithLabelValues(c.source.Name).Add(float64(len(points)))
	logger.Debug("source collected",
		zap.String("source", c.source.Name),
		zap.Int("devices", len(devices)),
		zap.Int("folders", len(folders)),
		zap.Float64("q_elapsed", protoFields["q_elapsed"]))
	return points, nil
}
