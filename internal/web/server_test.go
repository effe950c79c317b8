package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"mcpdoctor/internal/config"
	"mcpdoctor/internal/diagnose"
	"mcpdoctor/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	return NewServer(cfg, logger)
}

func TestHealthz(t *testing.T) {
	cfg := config.DefaultConfig()
	srv := testServer(t, &cfg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDiagnosticsEndpoint(t *testing.T) {
	declPath := filepath.Join(t.TempDir(), "servers.json")
	require.NoError(t, os.WriteFile(declPath,
		[]byte(`{"mcpServers": {"probe-me": {"command": "", "type": "stdio"}}}`), 0o644))

	cfg := config.DefaultConfig()
	cfg.ExtraConfigPaths = []string{declPath}
	srv := testServer(t, &cfg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/diagnostics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report diagnose.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.ID)
	assert.False(t, report.GeneratedAt.IsZero())

	found := false
	for _, result := range report.ValidationResults {
		if result.SourceID == declPath {
			found = true
			assert.False(t, result.IsValid, "the declared server has no command")
		}
	}
	assert.True(t, found, "configured extra path should be diagnosed")

	// Probing was not requested; no servers were launched.
	assert.Empty(t, report.ProbeResults)
}

func TestDiagnosticsMethodNotAllowed(t *testing.T) {
	cfg := config.DefaultConfig()
	srv := testServer(t, &cfg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/diagnostics", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
