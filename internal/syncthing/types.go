package syncthing

import "time"

// SystemConfig is the subset of GET /rest/system/config the collector
// needs: the default-folder device list (first entry identifies the
// instance's own device), the known devices and the configured folders.
type SystemConfig struct {
	Defaults DefaultsConfig `json:"defaults"`
	Devices  []DeviceConfig `json:"devices"`
	Folders  []FolderConfig `json:"folders"`
}

// DefaultsConfig carries the instance's template folder configuration.
type DefaultsConfig struct {
	Folder FolderConfig `json:"folder"`
}

// DeviceConfig is one device known to the instance, local or remote.
type DeviceConfig struct {
	DeviceID string `json:"deviceID"`
	Name     string `json:"name"`
}

// FolderConfig is one synced folder plus the devices sharing it.
type FolderConfig struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Path    string         `json:"path"`
	Devices []FolderDevice `json:"devices"`
}

// FolderDevice references a device sharing a folder.
type FolderDevice struct {
	DeviceID string `json:"deviceID"`
}

// DeviceStats is one entry of GET /rest/stats/device, keyed by device id.
type DeviceStats struct {
	LastSeen time.Time `json:"lastSeen"`
}

type completionResponse struct {
	Completion float64 `json:"completion"`
}
