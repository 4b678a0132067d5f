package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Remote.Timeout != DefaultRemoteTimeout {
		t.Errorf("Remote.Timeout = %v, want %v", cfg.Remote.Timeout, DefaultRemoteTimeout)
	}
	if cfg.Connectivity.Interval != DefaultProbeInterval {
		t.Errorf("Connectivity.Interval = %v, want %v", cfg.Connectivity.Interval, DefaultProbeInterval)
	}
	if cfg.Drain.MaxRetries != DefaultDrainMaxRetries {
		t.Errorf("Drain.MaxRetries = %d, want %d", cfg.Drain.MaxRetries, DefaultDrainMaxRetries)
	}
	if cfg.Lease.TTL != DefaultLeaseTTL {
		t.Errorf("Lease.TTL = %v, want %v", cfg.Lease.TTL, DefaultLeaseTTL)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
	if cfg.Observability.Tracing.Enabled {
		t.Error("Tracing should be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default",
			modify: func(c *Config) {},
		},
		{
			name: "valid with remote url",
			modify: func(c *Config) {
				c.Remote.BaseURL = "https://api.example.com"
				c.Connectivity.ProbeURL = "https://api.example.com/healthz"
			},
		},
		{
			name: "invalid remote scheme",
			modify: func(c *Config) {
				c.Remote.BaseURL = "ftp://api.example.com"
			},
			wantErr: "base_url must use http or https",
		},
		{
			name: "invalid probe scheme",
			modify: func(c *Config) {
				c.Connectivity.ProbeURL = "file:///etc/passwd"
			},
			wantErr: "probe_url must use http or https",
		},
		{
			name: "negative remote timeout",
			modify: func(c *Config) {
				c.Remote.Timeout = -time.Second
			},
			wantErr: "timeout must be non-negative",
		},
		{
			name: "zero drain retries",
			modify: func(c *Config) {
				c.Drain.MaxRetries = 0
			},
			wantErr: "max_retries must be positive",
		},
		{
			name: "backoff ceiling below floor",
			modify: func(c *Config) {
				c.Drain.InitialBackoff = time.Minute
				c.Drain.MaxBackoff = time.Second
			},
			wantErr: "max_backoff must be at least initial_backoff",
		},
		{
			name: "zero attempt timeout",
			modify: func(c *Config) {
				c.Drain.AttemptTimeout = 0
			},
			wantErr: "attempt_timeout must be positive",
		},
		{
			name: "zero lease ttl",
			modify: func(c *Config) {
				c.Lease.TTL = 0
			},
			wantErr: "ttl must be positive",
		},
		{
			name: "bad log level",
			modify: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			wantErr: "invalid log level",
		},
		{
			name: "bad log format",
			modify: func(c *Config) {
				c.Logging.Format = "xml"
			},
			wantErr: "invalid log format",
		},
		{
			name: "otlp without endpoint",
			modify: func(c *Config) {
				c.Observability.Tracing.Enabled = true
				c.Observability.Tracing.ExporterType = "otlp"
			},
			wantErr: "otlp_endpoint is required",
		},
		{
			name: "sample rate out of range",
			modify: func(c *Config) {
				c.Observability.Tracing.Enabled = true
				c.Observability.Tracing.ExporterType = "stdout"
				c.Observability.Tracing.SampleRate = 1.5
			},
			wantErr: "sample_rate must be between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_Load_MissingFileReturnsDefaults(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Drain.MaxRetries != DefaultDrainMaxRetries {
		t.Errorf("Load() without file should return defaults")
	}
}

func TestLoader_Load_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
remote:
  base_url: https://api.example.com
  timeout: 10s
connectivity:
  probe_url: https://api.example.com/healthz
  interval: 5s
drain:
  max_retries: 3
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	cfg, err := loader.Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Remote.BaseURL != "https://api.example.com" {
		t.Errorf("Remote.BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Errorf("Remote.Timeout = %v, want 10s", cfg.Remote.Timeout)
	}
	if cfg.Drain.MaxRetries != 3 {
		t.Errorf("Drain.MaxRetries = %d, want 3", cfg.Drain.MaxRetries)
	}
	// Unset fields keep their defaults.
	if cfg.Drain.AttemptTimeout != DefaultDrainAttemptTimeout {
		t.Errorf("Drain.AttemptTimeout = %v, want default", cfg.Drain.AttemptTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoader_Load_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("remote: ["), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if _, err := loader.Load(configPath); err == nil {
		t.Fatal("Load() with invalid YAML should fail")
	}
}

func TestLoader_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	cfg := NewDefaultConfig()
	cfg.Remote.BaseURL = "https://api.example.com"
	cfg.Drain.MaxRetries = 7

	if err := loader.Save(cfg, ""); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Remote.BaseURL != "https://api.example.com" {
		t.Errorf("round-trip BaseURL = %q", loaded.Remote.BaseURL)
	}
	if loaded.Drain.MaxRetries != 7 {
		t.Errorf("round-trip MaxRetries = %d, want 7", loaded.Drain.MaxRetries)
	}
}

func TestLoader_LoadFromFile_Missing(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if _, err := loader.LoadFromFile(filepath.Join(loader.ConfigDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFromFile() with missing file should fail")
	}
}
