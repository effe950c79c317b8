package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10000, cfg.ProbeTimeoutMs)
	assert.False(t, cfg.ProbeByDefault)
	assert.Equal(t, "127.0.0.1:8123", cfg.ListenAddr)
	assert.Equal(t, "1.0", cfg.Version)
}

func TestProbeTimeout(t *testing.T) {
	tests := []struct {
		name string
		ms   int
		want time.Duration
	}{
		{"configured value", 2500, 2500 * time.Millisecond},
		{"zero falls back to default", 0, DefaultProbeTimeout},
		{"negative falls back to default", -1, DefaultProbeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{ProbeTimeoutMs: tt.ms}
			assert.Equal(t, tt.want, cfg.ProbeTimeout())
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.ProbeTimeoutMs = 5000
	cfg.ProbeByDefault = true
	cfg.ExtraConfigPaths = []string{"/etc/mcp/servers.json"}

	require.NoError(t, cfg.SaveTo(path))
	assert.NotZero(t, cfg.InitTime, "InitTime should be set on first save")

	loaded, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.ProbeTimeoutMs, loaded.ProbeTimeoutMs)
	assert.Equal(t, cfg.ProbeByDefault, loaded.ProbeByDefault)
	assert.Equal(t, cfg.ExtraConfigPaths, loaded.ExtraConfigPaths)
	assert.Equal(t, cfg.InitTime, loaded.InitTime)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probe_timeout_ms: [not an int\n"), 0o644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}
