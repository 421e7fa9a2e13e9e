package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

var valid = validator.New()

// Validate checks one configuration set after defaults and name injection.
// Struct tags cover the field-level rules; the extra checks here are the
// ones tags cannot express (certificate files must exist at load time, not
// fail later mid-collection).
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	for name, sc := range c.Syncthings {
		if sc.SSLCertFile == "" {
			continue
		}
		if _, err := os.Stat(sc.SSLCertFile); err != nil {
			return fmt.Errorf("syncthings.%s: ssl_cert_file: %w", name, err)
		}
	}
	return nil
}

// Validate checks the agent configuration: struct tags first, then the
// cross-flag rules inherited from the original CLI contract.
func (c *AgentConfig) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	if c.Count == 0 {
		return fmt.Errorf("pass count cannot be zero (use a negative count to run forever)")
	}
	if c.Silent && c.Verbose {
		return fmt.Errorf("cannot use --silent and --verbose at the same time")
	}
	if c.configFlagSet && c.configDirFlagSet {
		return fmt.Errorf("give either --config or --config-dir, not both")
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate ensures the log directory is usable before the logger opens it.
func (l *LogConfig) Validate() error {
	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return fmt.Errorf("log.path %s: %w", l.Path, err)
	}
	if err := ensureDir(abs); err != nil {
		return fmt.Errorf("log.path %s not writable: %w", l.Path, err)
	}
	return nil
}

// Validate checks the self-metrics endpoint address when it is enabled.
func (m *MetricsServerConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty when server.enabled is set")
	}
	if _, err := net.ResolveTCPAddr("tcp", m.Addr); err != nil {
		return fmt.Errorf("server.addr invalid (expected :port or ip:port), got %s: %w", m.Addr, err)
	}
	return nil
}

func ensureDir(path string) error {
	stat, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	if err != nil {
		return err
	}
	if !stat.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
