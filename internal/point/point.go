// Package point holds the time-series sample model shared by the collector
// and the sink dispatcher: one measurement name, a string tag set and a
// numeric field set, plus the merge rules for building tag sets up from the
// per-source identity.
package point

import (
	"errors"
	"time"
)

// Identity tag keys. They are written once per source at the start of a
// collection cycle and MergeTags never lets later merges overwrite them.
const (
	TagConfigName = "cfg_name"
	TagOwnID      = "my_id"
	TagOwnName    = "my_name"
)

// Entity tag keys attached to each remote device or folder point.
const (
	TagID    = "id"
	TagName  = "name"
	TagLabel = "label"
	TagPath  = "path"
)

var identityKeys = [...]string{TagConfigName, TagOwnID, TagOwnName}

// ErrEmptyMeasurement is returned by New for a point without a measurement name.
var ErrEmptyMeasurement = errors.New("point: empty measurement name")

// Point is a single tagged, numeric-field observation. Tags identify the
// series, Fields carry the values, Time is the UTC instant captured at the
// start of the owning source's collection cycle.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]float64
	Time        time.Time
}

// New builds a Point. The measurement name must be non-empty; tags and
// fields are taken as-is without further validation.
func New(measurement string, tags map[string]string, fields map[string]float64, ts time.Time) (Point, error) {
	if measurement == "" {
		return Point{}, ErrEmptyMeasurement
	}
	return Point{
		Measurement: measurement,
		Tags:        tags,
		Fields:      fields,
		Time:        ts,
	}, nil
}

// MergeTags returns a new tag set containing base's entries overlaid with
// overrides. Overrides win on conflict, except for the identity keys: an
// identity entry present in base survives any override, so an entity tag
// that happens to be named cfg_name cannot take over the source identity.
func MergeTags(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	for _, k := range identityKeys {
		if v, ok := base[k]; ok {
			merged[k] = v
		}
	}
	return merged
}

// MergeFields returns a new field set containing base's entries overlaid
// with overrides; overrides win on conflict. Fields carry no identity, so
// there are no protected keys here.
func MergeFields(base, overrides map[string]float64) map[string]float64 {
	merged := make(map[string]float64, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
