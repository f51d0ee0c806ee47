package sanchez

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the orchestrator's settings. Durations are expressed in
// integer units (seconds or milliseconds) so the file stays hand-editable.
type Config struct {
	Tool struct {
		// Dir is the installation directory holding the binary and its
		// Resources directory.
		Dir string `yaml:"dir"`
		// Binary overrides the platform-default binary name.
		Binary string `yaml:"binary"`
		// TimeoutSec bounds one invocation end to end.
		TimeoutSec int `yaml:"timeout_sec"`
		// ProbeTimeoutSec bounds the health probe.
		ProbeTimeoutSec int `yaml:"probe_timeout_sec"`
		// HealthTTLSec is the health cache freshness window.
		HealthTTLSec int `yaml:"health_ttl_sec"`
	} `yaml:"tool"`
	Monitor struct {
		PollIntervalMS int `yaml:"poll_interval_ms"`
		GracePeriodMS  int `yaml:"grace_period_ms"`
	} `yaml:"monitor"`
	Audit struct {
		Enabled bool   `yaml:"enabled"`
		Dir     string `yaml:"dir"`
	} `yaml:"audit"`
	// TempDir hosts the per-processor private working directories; empty
	// selects the system temp directory.
	TempDir string `yaml:"temp_dir"`
}

// DefaultConfig returns the baseline settings used when no file is given.
func DefaultConfig() Config {
	var c Config
	c.Tool.Dir = "/opt/sanchez"
	c.Tool.TimeoutSec = 300
	c.Tool.ProbeTimeoutSec = 5
	c.Tool.HealthTTLSec = 300
	c.Monitor.PollIntervalMS = 500
	c.Monitor.GracePeriodMS = 2000
	return c
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) timeout() time.Duration {
	if c.Tool.TimeoutSec <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Tool.TimeoutSec) * time.Second
}

func (c *Config) probeTimeout() time.Duration {
	return time.Duration(c.Tool.ProbeTimeoutSec) * time.Second
}

func (c *Config) healthTTL() time.Duration {
	return time.Duration(c.Tool.HealthTTLSec) * time.Second
}

func (c *Config) pollInterval() time.Duration {
	return time.Duration(c.Monitor.PollIntervalMS) * time.Millisecond
}

func (c *Config) gracePeriod() time.Duration {
	return time.Duration(c.Monitor.GracePeriodMS) * time.Millisecond
}
