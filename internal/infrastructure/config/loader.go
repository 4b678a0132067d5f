package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configFileName is the file the loader reads and writes inside the
// config directory.
const configFileName = "config.yaml"

// Loader reads and writes the YAML config file. All paths resolve
// relative to a single config directory so the CLI, the console, and
// init agree on where settings live.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at dir, defaulting to ~/.syncbridge
// when dir is empty.
func NewLoader(dir string) (*Loader, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".syncbridge")
	}
	return &Loader{dir: dir}, nil
}

// Load reads the config at path, or the default location when path is
// empty. A missing file is not an error: first runs get defaults.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		path = l.DefaultConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewDefaultConfig(), nil
	}
	return l.decodeFile(path)
}

// LoadFromFile reads the config at an explicit path and fails if the
// file is absent. Used when the user passed --config themselves.
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return l.decodeFile(path)
}

// decodeFile unmarshals YAML over the defaults, so omitted keys keep
// their default values.
func (l *Loader) decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, or the default location when path
// is empty, creating the config directory as needed.
func (l *Loader) Save(cfg *Config, path string) error {
	if path == "" {
		path = l.DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	content := "# Syncbridge configuration\n# https://github.com/jbctechsolutions/syncbridge\n\n" + string(data)

	// 0600: the file may carry a remote endpoint the user considers private.
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigDir returns the directory the loader resolves paths against.
func (l *Loader) ConfigDir() string {
	return l.dir
}

// DefaultConfigPath returns where Load and Save look when no explicit
// path is given.
func (l *Loader) DefaultConfigPath() string {
	return filepath.Join(l.dir, configFileName)
}
