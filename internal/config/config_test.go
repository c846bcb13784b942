package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Proxy.IsEnabled() {
		t.Error("expected proxy to be disabled by default")
	}
	if cfg.Proxy.Port != 8080 {
		t.Errorf("expected default proxy port 8080, got %d", cfg.Proxy.Port)
	}
	if len(cfg.Engine.Lists) != 0 {
		t.Error("expected no extra lists by default")
	}
}

func TestProxyIsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		enabled  *bool
		expected bool
	}{
		{"nil defaults to false", nil, false},
		{"explicit true", boolPtr(true), true},
		{"explicit false", boolPtr(false), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := ProxyConfig{Enabled: tt.enabled}
			if got := pc.IsEnabled(); got != tt.expected {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Proxy.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Proxy.Port)
	}
}

func TestLoadFromEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Proxy.Port != 8080 {
		t.Error("expected default config for empty path")
	}
}

func TestLoadFromParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[engine]
lists = ["lists/custom.txt"]
whitelist = ["example.com"]
disable_default = true

[proxy]
enabled = true
port = 9090

[logging]
dir = "logs"

[[logging.receivers]]
type = "syslog"
tag = "urlfilter"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Engine.DisableDefault {
		t.Error("expected disable_default to be true")
	}
	if len(cfg.Engine.Lists) != 1 || cfg.Engine.Lists[0] != "lists/custom.txt" {
		t.Errorf("unexpected lists: %v", cfg.Engine.Lists)
	}
	if !cfg.Proxy.IsEnabled() || cfg.Proxy.Port != 9090 {
		t.Errorf("unexpected proxy config: %+v", cfg.Proxy)
	}
	if len(cfg.Logging.Receivers) != 1 || cfg.Logging.Receivers[0].Type != "syslog" {
		t.Errorf("unexpected receivers: %+v", cfg.Logging.Receivers)
	}
}

func TestLoadFromExpandsHomeInPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
[logging]
dir = "~/urlfilter-logs"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if cfg.Logging.Dir != filepath.Join(home, "urlfilter-logs") {
		t.Errorf("expected expanded home dir, got %q", cfg.Logging.Dir)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	original := &Config{
		Engine: EngineConfig{
			Lists:          []string{"lists/**/*.txt"},
			Whitelist:      []string{"example.com", "trusted.org"},
			DisableDefault: true,
		},
		Logging: LoggingConfig{
			Dir: "/var/log/urlfilter",
			Receivers: []ReceiverConfig{{
				Type:          "otlp",
				Endpoint:      "http://localhost:4318/v1/logs",
				Protocol:      "http",
				Headers:       map[string]string{"Authorization": "Bearer x"},
				BatchSize:     50,
				FlushInterval: "5s",
				Insecure:      true,
			}},
			Attributes: map[string]string{"env": "test"},
		},
		Proxy: ProxyConfig{
			Enabled:     boolPtr(true),
			Port:        9090,
			BindAddress: "0.0.0.0",
			MetricsPort: 9091,
		},
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := toml.NewEncoder(f).Encode(original); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(original, loaded) {
		t.Errorf("config did not survive the round trip:\noriginal: %+v\nloaded:   %+v", original, loaded)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Proxy.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestValidateRejectsBadReceiverType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Receivers = []ReceiverConfig{{Type: "carrier-pigeon"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown receiver type")
	}
}

func TestValidateRejectsReceiverMissingAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Receivers = []ReceiverConfig{{Type: "otlp"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for otlp receiver with no address or endpoint")
	}
}

func TestValidateRejectsEmptyListEntry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Lists = []string{""}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty list pattern")
	}
}

func TestValidateRejectsMalformedGlobPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Lists = []string{"lists/[abc.txt"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for malformed glob pattern (unclosed character class)")
	}
}

func TestValidateAcceptsDoublestarPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Lists = []string{"lists/**/*.txt"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected ** glob pattern to be valid, got: %v", err)
	}
}

func TestConfigDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")
	if got := ConfigDir(); got != filepath.Join("/tmp/xdgtest", "urlfilter") {
		t.Errorf("got %q", got)
	}
}
