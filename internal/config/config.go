// Package config provides configuration file support for urlfilter.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

const (
	// MinPort is the minimum valid port number.
	MinPort = 1
	// MaxPort is the maximum valid port number.
	MaxPort = 65535
)

// Config represents the urlfilter configuration file.
type Config struct {
	// Engine contains filter list and whitelist settings.
	Engine EngineConfig `toml:"engine"`

	// Logging contains remote logging settings.
	Logging LoggingConfig `toml:"logging"`

	// Proxy contains demonstration proxy server settings.
	Proxy ProxyConfig `toml:"proxy"`
}

// EngineConfig controls which filter lists are loaded and how.
type EngineConfig struct {
	// Lists is a set of glob patterns (supporting **) pointing at filter
	// list files to load, in addition to the built-in default list.
	Lists []string `toml:"lists"`

	// Whitelist is a set of domains that always bypass filtering,
	// regardless of any matching block rule.
	Whitelist []string `toml:"whitelist"`

	// DisableDefault skips loading the embedded default filter list,
	// leaving the engine populated only from Lists.
	DisableDefault bool `toml:"disable_default"`
}

// ProxyConfig contains demonstration proxy server settings.
type ProxyConfig struct {
	// Enabled records whether the demonstration proxy is enabled (see
	// IsEnabled). The serve command starts the proxy regardless of it.
	Enabled *bool `toml:"enabled"`

	// Port is the proxy listen port.
	Port int `toml:"port"`

	// BindAddress is the proxy listen address. Defaults to "127.0.0.1".
	BindAddress string `toml:"bind_address"`

	// MetricsPort is the port the Prometheus metrics endpoint listens on.
	// Zero disables the metrics server.
	MetricsPort int `toml:"metrics_port"`
}

// IsEnabled returns whether the proxy is enabled (defaults to false).
func (p ProxyConfig) IsEnabled() bool {
	if p.Enabled == nil {
		return false
	}
	return *p.Enabled
}

// LoggingConfig contains remote logging configuration.
type LoggingConfig struct {
	// Dir is the base log directory. The engine error log is written here;
	// the demonstration proxy writes its decision logs under Dir/proxy.
	Dir string `toml:"dir"`

	// Receivers is a list of remote log destinations.
	Receivers []ReceiverConfig `toml:"receivers"`

	// Attributes are custom key-value pairs added to all log entries.
	Attributes map[string]string `toml:"attributes"`
}

// ReceiverConfig defines a single log receiver.
type ReceiverConfig struct {
	// Type is the receiver type: "syslog", "syslog-remote", or "otlp".
	Type string `toml:"type"`

	// Address is the remote server address (for syslog-remote and otlp).
	Address string `toml:"address"`

	// Endpoint is the OTLP endpoint URL (alias for Address, for otlp type).
	Endpoint string `toml:"endpoint"`

	// Protocol is the transport protocol:
	// - For syslog-remote: "udp" or "tcp" (default: udp)
	// - For otlp: "http" or "grpc" (default: http)
	Protocol string `toml:"protocol"`

	// Facility is the syslog facility (e.g., "local0").
	Facility string `toml:"facility"`

	// Tag is the syslog program tag.
	Tag string `toml:"tag"`

	// Headers are custom HTTP headers for OTLP.
	Headers map[string]string `toml:"headers"`

	// BatchSize is the OTLP batch size before flush.
	BatchSize int `toml:"batch_size"`

	// FlushInterval is the OTLP flush interval (e.g., "5s").
	FlushInterval string `toml:"flush_interval"`

	// Insecure disables TLS for gRPC connections.
	Insecure bool `toml:"insecure"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{},
		Proxy: ProxyConfig{
			Enabled: nil,
			Port:    8080,
		},
	}
}

// ConfigDir returns the urlfilter config directory path.
// Uses XDG_CONFIG_HOME/urlfilter or ~/.config/urlfilter.
func ConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "urlfilter")
}

// ConfigPath returns the path to the default config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LoadFrom reads the configuration from the specified path.
// Returns default config if the file doesn't exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	for i, l := range cfg.Engine.Lists {
		cfg.Engine.Lists[i] = expandHome(l)
	}
	cfg.Logging.Dir = expandHome(cfg.Logging.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadConfig loads the configuration from the default path for the current
// user, returning default values if no file is present.
func LoadConfig() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Proxy.Port != 0 {
		if c.Proxy.Port < MinPort || c.Proxy.Port > MaxPort {
			return fmt.Errorf("proxy.port must be between %d and %d, got %d", MinPort, MaxPort, c.Proxy.Port)
		}
	}
	if c.Proxy.MetricsPort != 0 {
		if c.Proxy.MetricsPort < MinPort || c.Proxy.MetricsPort > MaxPort {
			return fmt.Errorf("proxy.metrics_port must be between %d and %d, got %d", MinPort, MaxPort, c.Proxy.MetricsPort)
		}
	}

	validReceiverTypes := map[string]bool{"syslog": true, "syslog-remote": true, "otlp": true}
	for i, r := range c.Logging.Receivers {
		if !validReceiverTypes[r.Type] {
			return fmt.Errorf("logging.receivers[%d].type must be 'syslog', 'syslog-remote', or 'otlp', got %q", i, r.Type)
		}
		if r.Type != "syslog" && r.Address == "" && r.Endpoint == "" {
			return fmt.Errorf("logging.receivers[%d] requires address or endpoint", i)
		}
	}

	for i, l := range c.Engine.Lists {
		if l == "" {
			return fmt.Errorf("engine.lists[%d] cannot be empty", i)
		}
		if !doublestar.ValidatePattern(l) {
			return fmt.Errorf("engine.lists[%d]: invalid glob pattern %q", i, l)
		}
	}

	return nil
}

// expandHome expands a leading ~ or ~/ to the user's home directory.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
