// Package config provides configuration structs and utilities for the
// syncbridge application.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config represents the root configuration for the syncbridge application.
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Remote        RemoteConfig        `yaml:"remote"`
	Connectivity  ConnectivityConfig  `yaml:"connectivity"`
	Drain         DrainConfig         `yaml:"drain"`
	Lease         LeaseConfig         `yaml:"lease"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds configuration for the local SQLite store.
type StorageConfig struct {
	Path string `yaml:"path"` // Database file path; empty means ~/.syncbridge/syncbridge.db
}

// RemoteConfig holds configuration for the remote data service.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ConnectivityConfig holds configuration for the connectivity monitor.
type ConnectivityConfig struct {
	ProbeURL string        `yaml:"probe_url"` // Endpoint probed with HEAD requests
	Interval time.Duration `yaml:"interval"`  // Probe period
	Timeout  time.Duration `yaml:"timeout"`   // Per-probe timeout
}

// DrainConfig holds configuration for queue draining.
type DrainConfig struct {
	MaxRetries     int           `yaml:"max_retries"`     // Attempts before an action is dead-lettered
	InitialBackoff time.Duration `yaml:"initial_backoff"` // First retry delay
	MaxBackoff     time.Duration `yaml:"max_backoff"`     // Backoff ceiling
	AttemptTimeout time.Duration `yaml:"attempt_timeout"` // Per-attempt deadline
}

// LeaseConfig holds configuration for the drain lease.
type LeaseConfig struct {
	TTL time.Duration `yaml:"ttl"` // How long a lease lives without renewal
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ObservabilityConfig holds configuration for observability features.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`       // Whether tracing is enabled
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // OTLP collector endpoint
	SampleRate   float64 `yaml:"sample_rate"`   // Sampling rate (0.0 to 1.0)
	ServiceName  string  `yaml:"service_name"`  // Service name for traces
}

// Default configuration values.
const (
	DefaultRemoteTimeout = 30 * time.Second
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"

	// Connectivity defaults
	DefaultProbeInterval = 15 * time.Second
	DefaultProbeTimeout  = 3 * time.Second

	// Drain defaults
	DefaultDrainMaxRetries     = 5
	DefaultDrainInitialBackoff = 500 * time.Millisecond
	DefaultDrainMaxBackoff     = 30 * time.Second
	DefaultDrainAttemptTimeout = 20 * time.Second

	// Lease defaults
	DefaultLeaseTTL = 60 * time.Second

	// Observability defaults
	DefaultTracingEnabled      = false
	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "syncbridge"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid log formats.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Valid tracing exporter types.
var validTracingExporterTypes = map[string]bool{
	"none":   true,
	"stdout": true,
	"otlp":   true,
}

// NewDefaultConfig creates a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{},
		Remote: RemoteConfig{
			Timeout: DefaultRemoteTimeout,
		},
		Connectivity: ConnectivityConfig{
			Interval: DefaultProbeInterval,
			Timeout:  DefaultProbeTimeout,
		},
		Drain: DrainConfig{
			MaxRetries:     DefaultDrainMaxRetries,
			InitialBackoff: DefaultDrainInitialBackoff,
			MaxBackoff:     DefaultDrainMaxBackoff,
			AttemptTimeout: DefaultDrainAttemptTimeout,
		},
		Lease: LeaseConfig{
			TTL: DefaultLeaseTTL,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      DefaultTracingEnabled,
				ExporterType: DefaultTracingExporterType,
				SampleRate:   DefaultTracingSampleRate,
				ServiceName:  DefaultTracingServiceName,
			},
		},
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Remote.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("remote: %w", err))
	}

	if err := c.Connectivity.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("connectivity: %w", err))
	}

	if err := c.Drain.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("drain: %w", err))
	}

	if err := c.Lease.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("lease: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the RemoteConfig is valid.
func (r *RemoteConfig) Validate() error {
	var errs []error

	if r.BaseURL != "" {
		parsedURL, err := url.Parse(r.BaseURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid base_url: %w", err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errs = append(errs, errors.New("base_url must use http or https scheme"))
		}
	}

	if r.Timeout < 0 {
		errs = append(errs, errors.New("timeout must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the ConnectivityConfig is valid.
func (c *ConnectivityConfig) Validate() error {
	var errs []error

	if c.ProbeURL != "" {
		parsedURL, err := url.Parse(c.ProbeURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid probe_url: %w", err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errs = append(errs, errors.New("probe_url must use http or https scheme"))
		}
	}

	if c.Interval < 0 {
		errs = append(errs, errors.New("interval must be non-negative"))
	}

	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the DrainConfig is valid.
func (d *DrainConfig) Validate() error {
	var errs []error

	if d.MaxRetries <= 0 {
		errs = append(errs, errors.New("max_retries must be positive"))
	}

	if d.InitialBackoff <= 0 {
		errs = append(errs, errors.New("initial_backoff must be positive"))
	}

	if d.MaxBackoff < d.InitialBackoff {
		errs = append(errs, errors.New("max_backoff must be at least initial_backoff"))
	}

	if d.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("attempt_timeout must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the LeaseConfig is valid.
func (l *LeaseConfig) Validate() error {
	if l.TTL <= 0 {
		return errors.New("ttl must be positive")
	}
	return nil
}

// Validate checks if the LoggingConfig is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.Level != "" && !validLogLevels[l.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", l.Level))
	}

	if l.Format != "" && !validLogFormats[l.Format] {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of json, text", l.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the ObservabilityConfig is valid.
func (o *ObservabilityConfig) Validate() error {
	if err := o.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks if the TracingConfig is valid.
func (t *TracingConfig) Validate() error {
	var errs []error

	if t.Enabled {
		if t.ExporterType != "" && !validTracingExporterTypes[t.ExporterType] {
			errs = append(errs, fmt.Errorf("invalid exporter_type %q: must be one of none, stdout, otlp", t.ExporterType))
		}
		if t.ExporterType == "otlp" && t.OTLPEndpoint == "" {
			errs = append(errs, errors.New("otlp_endpoint is required when exporter_type is 'otlp'"))
		}
		if t.SampleRate < 0 || t.SampleRate > 1 {
			errs = append(errs, errors.New("sample_rate must be between 0.0 and 1.0"))
		}
		if t.ServiceName == "" {
			errs = append(errs, errors.New("service_name is required when tracing is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
