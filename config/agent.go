package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// AgentConfig is the process-level configuration: which configuration set
// files to run, how many passes, pacing, output verbosity and the ambient
// services (logging, self-metrics endpoint). It is assembled from defaults,
// CLI flags and environment; it never comes from the set documents.
type AgentConfig struct {
	ConfigFile      string        `mapstructure:"config"`
	ConfigDir       string        `mapstructure:"config-dir"`
	Count           int           `mapstructure:"count"`
	Wait            time.Duration `mapstructure:"wait" validate:"gt=0"`
	Silent          bool          `mapstructure:"silent"`
	Verbose         bool          `mapstructure:"verbose"`
	HaltOnSendError bool          `mapstructure:"halt-on-send-error"`

	Log    LogConfig           `mapstructure:"log"`
	Server MetricsServerConfig `mapstructure:"server"`

	// Whether --config / --config-dir were given explicitly, as opposed to
	// falling back to the defaults. Needed for the exactly-one check.
	configFlagSet    bool
	configDirFlagSet bool
}

// LogConfig configures the zap logger: console level handling comes from
// the silent/verbose flags, the rotated file core from these settings.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"required,oneof=json console"`
	Path       string `mapstructure:"path" validate:"required"`
	MaxSizeMB  int    `mapstructure:"max_size" validate:"gt=0"`
	MaxAgeDays int    `mapstructure:"max_age" validate:"gt=0"`
}

// MetricsServerConfig configures the optional self-metrics HTTP endpoint
// (/metrics and /health). Disabled by default; a one-shot run has no use
// for it.
type MetricsServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
}

// NewDefaultAgentConfig returns the agent defaults: one pass over
// ./syncflux.yml with a 60s inter-pass wait, info-level logging to ./logs,
// self-metrics endpoint off.
func NewDefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		ConfigFile: "syncflux.yml",
		Count:      1,
		Wait:       60 * time.Second,
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			Path:       "./logs",
			MaxSizeMB:  100,
			MaxAgeDays: 7,
		},
		Server: MetricsServerConfig{
			Enabled:      false,
			Addr:         "0.0.0.0:9120",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// LoadAgentConfig builds the agent configuration from the command's flags
// and the environment on top of the defaults, decoding through viper with
// duration support, then validates it.
func LoadAgentConfig(cmd *cobra.Command) (*AgentConfig, error) {
	cfg := NewDefaultAgentConfig()
	v := viper.New()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.AutomaticEnv()

	decoderConfig := &mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.configFlagSet = cmd.Flags().Changed("config")
	cfg.configDirFlagSet = cmd.Flags().Changed("config-dir")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFiles resolves the configuration set files for one run: either the
// single --config file or every *.yml in --config-dir, in sorted filename
// order. Called once at startup; an empty or unreadable selection is fatal
// there, while per-pass re-reads of the files themselves are not.
func (c *AgentConfig) ConfigFiles() ([]string, error) {
	if c.ConfigDir != "" {
		entries, err := os.ReadDir(c.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("read config dir: %w", err)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(e.Name()), ".yml") {
				files = append(files, filepath.Join(c.ConfigDir, e.Name()))
			}
		}
		sort.Strings(files)
		if len(files) == 0 {
			return nil, fmt.Errorf("no .yml configuration files in %s", c.ConfigDir)
		}
		return files, nil
	}

	if _, err := os.Stat(c.ConfigFile); err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", c.ConfigFile, err)
	}
	return []string{c.ConfigFile}, nil
}
