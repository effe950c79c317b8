// Package web exposes the diagnostics engine over HTTP. The transport adds
// no behavior of its own: a request triggers one diagnostic run and the
// resulting report is returned as JSON.
package web

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"mcpdoctor/internal/config"
	"mcpdoctor/internal/diagnose"
	"mcpdoctor/internal/logging"
	"mcpdoctor/internal/mcpconfig"
	"mcpdoctor/internal/probe"
)

// Server serves diagnostic reports over HTTP.
type Server struct {
	cfg    *config.Config
	logger *logging.AppLogger
}

// NewServer creates a web server around the given app config.
func NewServer(cfg *config.Config, logger *logging.AppLogger) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Server{cfg: cfg, logger: logger}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// ListenAndServe blocks serving HTTP on the configured address.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.ListenAddr
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // a probing run can take a while
	}

	s.logger.Info("Serving diagnostics API", "addr", addr)
	return srv.ListenAndServe()
}

// handleDiagnostics runs a diagnostic pass on demand. Probing is off unless
// ?probe=true is given, since it spawns the declared server processes.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	withProbe := r.URL.Query().Get("probe") == "true"

	workDir, err := os.Getwd()
	if err != nil {
		workDir = ""
	}
	sources := mcpconfig.Locate(workDir, s.cfg.ExtraConfigPaths)

	var prober *probe.Prober
	if withProbe {
		prober = probe.New(s.cfg.ProbeTimeout(), s.logger)
	}

	report := diagnose.New(prober, s.logger).Run(r.Context(), sources, diagnose.Options{Probe: withProbe})

	s.logger.Info("Diagnostic run complete",
		"run", report.ID,
		"sources", len(report.ValidationResults),
		"servers", report.TotalServerCount,
		"healthy", report.HealthyServerCount,
		"probed", len(report.ProbeResults),
	)

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", "error", err)
	}
}
