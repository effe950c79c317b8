package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mcpdoctor/internal/logging"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "mcpdoctor" // application name used for config directory

// DefaultProbeTimeout bounds a single capability probe when the user has not
// configured one.
const DefaultProbeTimeout = 10 * time.Second

// Config holds user configuration for mcpdoctor.
type Config struct {
	// ProbeTimeoutMs bounds a single capability probe, in milliseconds.
	ProbeTimeoutMs int `yaml:"probe_timeout_ms"`
	// ProbeByDefault makes "mcpdoctor diagnose" launch servers without --probe.
	ProbeByDefault bool `yaml:"probe_by_default"`
	// ExtraConfigPaths lists additional MCP declaration files to diagnose
	// beyond the standard locations.
	ExtraConfigPaths []string `yaml:"extra_config_paths"`
	// ListenAddr is the bind address for "mcpdoctor serve".
	ListenAddr string `yaml:"listen_addr"`
	Version    string `yaml:"version"`   // Track config version
	InitTime   int64  `yaml:"init_time"` // Unix timestamp of first save
}

// ProbeTimeout returns the configured probe deadline as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	if c.ProbeTimeoutMs <= 0 {
		return DefaultProbeTimeout
	}
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, APP_NAME)
	configPath := filepath.Join(configDir, "config.yaml")

	logging.Debug("Determined config paths", "path", configPath)
	return configPath, nil
}

// Load loads the config from the standard location.
// If no config exists, defaults are returned; mcpdoctor works out of the box.
func Load() (*Config, error) {
	configPath, exists := FindConfigFile()
	logging.Debug("Loading config from", "path", configPath)
	if !exists {
		cfg := DefaultConfig()
		return &cfg, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads config from a specific path
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// FindConfigFile returns the path to an existing config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	// Check primary location first
	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	// Return primary path for new config
	return primary, false
}

// IsFirstRun checks if this is the first time the application is run
func IsFirstRun() bool {
	_, exists := FindConfigFile()
	return !exists
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ProbeTimeoutMs: int(DefaultProbeTimeout / time.Millisecond),
		ProbeByDefault: false,
		ListenAddr:     "127.0.0.1:8123",
		Version:        "1.0",
		InitTime:       0, // Will be set during first save
	}
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	configPath, _ := FindConfigFile()
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	// Set init time if this is the first save
	if c.InitTime == 0 {
		c.InitTime = time.Now().Unix()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file with restrictive permissions (600) for security
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logging.Info("Configuration saved", "path", path)
	return nil
}
