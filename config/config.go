// Package config defines the two configuration layers of the agent: the
// process-level agent settings fed by CLI flags (agent.go) and the
// configuration set documents describing which Syncthing instances to poll
// and which InfluxDB sinks to write to. Set documents are decoded strictly
// and validated once at the load boundary; nothing downstream re-checks
// them.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is one configuration set: the named sources to poll, the named
// sinks to write to and the two measurement names used for emitted points.
// Sets are re-read from disk every pass, so live edits take effect on the
// next pass.
type Config struct {
	Syncthings   map[string]SyncthingConfig `yaml:"syncthings" validate:"required,min=1,dive"`
	Influxes     map[string]InfluxConfig    `yaml:"influxes" validate:"required,min=1,dive"`
	Measurements MeasurementConfig          `yaml:"measurements" validate:"required"`
}

// SyncthingConfig holds the connection parameters for one monitored
// Syncthing instance. Name is injected from the map key, never from the
// document body. Tags are free-form static tags applied to every point
// produced from this source; they cannot override the identity tag keys.
type SyncthingConfig struct {
	Name        string            `yaml:"-"`
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port" validate:"gte=1,lte=65535"`
	APIKey      string            `yaml:"api_key" validate:"required"`
	Timeout     Duration          `yaml:"timeout" validate:"gt=0"`
	HTTPS       bool              `yaml:"is_https"`
	SSLCertFile string            `yaml:"ssl_cert_file"`
	Tags        map[string]string `yaml:"tags"`
}

// InfluxConfig holds the connection parameters for one InfluxDB sink,
// 1.x style: host/port/database plus basic credentials.
type InfluxConfig struct {
	Host      string `yaml:"host" validate:"required"`
	Port      int    `yaml:"port" validate:"gte=1,lte=65535"`
	SSL       bool   `yaml:"ssl"`
	VerifySSL bool   `yaml:"verify_ssl"`
	Database  string `yaml:"database" validate:"required"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// MeasurementConfig names the two measurements points are emitted under.
type MeasurementConfig struct {
	Devices string `yaml:"devices" validate:"required"`
	Folders string `yaml:"folders" validate:"required"`
}

// Duration decodes either a Go duration string ("10s", "1m30s") or a bare
// number of seconds (the original configuration format used float seconds).
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs float64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LoadError tags a configuration set failure with the file it came from.
// The scheduler treats it as fatal for that file's processing in the
// current pass only; other files and later passes are unaffected.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("config %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Load decodes and validates one configuration set document. Unknown keys
// are rejected, source names are injected from the map keys with their case
// preserved, and connection defaults (localhost:8384, 10s timeout) are
// applied before validation.
func Load(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	for name, sc := range cfg.Syncthings {
		sc.Name = name
		sc.applyDefaults()
		cfg.Syncthings[name] = sc
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads one configuration set fresh from disk. Every failure mode
// (missing file, parse error, validation error) comes back as a *LoadError
// naming the file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return cfg, nil
}

func (s *SyncthingConfig) applyDefaults() {
	if s.Host == "" {
		s.Host = "localhost"
	}
	if s.Port == 0 {
		s.Port = 8384
	}
	if s.Timeout == 0 {
		s.Timeout = Duration(10 * time.Second)
	}
}

// SourceNames returns the configured source names in sorted order. Map
// iteration order is random per run; collection sweeps sources in this
// order so a pass's point batch is stable.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Syncthings))
	for name := range c.Syncthings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SinkNames returns the configured sink names in sorted order, the order
// the dispatcher visits them in.
func (c *Config) SinkNames() []string {
	names := make([]string, 0, len(c.Influxes))
	for name := range c.Influxes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
