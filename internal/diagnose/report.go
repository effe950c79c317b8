package diagnose

import (
	"time"

	"mcpdoctor/internal/mcpconfig"
	"mcpdoctor/internal/probe"
	"mcpdoctor/internal/validation"
)

// DuplicateServerName reports one server name declared in more than one
// distinct source.
type DuplicateServerName struct {
	Name            string   `json:"name"`
	SourceLocations []string `json:"sourceLocations"`
}

// ServerProbe pairs a declared server with its capability probe outcome.
type ServerProbe struct {
	Server mcpconfig.ServerEntry `json:"server"`
	Result probe.Result          `json:"result"`
}

// Report is the full outcome of one diagnostic run. A report is always
// produced; "no diagnosable servers" is a reportable outcome, not a failure.
type Report struct {
	ID                   string                `json:"id"`
	ValidationResults    []validation.Result   `json:"validationResults"`
	ProbeResults         []ServerProbe         `json:"probeResults,omitempty"`
	DuplicateServerNames []DuplicateServerName `json:"duplicateServerNames"`
	TotalServerCount     int                   `json:"totalServerCount"`
	HealthyServerCount   int                   `json:"healthyServerCount"`
	Recommendations      []string              `json:"recommendations"`
	GeneratedAt          time.Time             `json:"generatedAt"`
}
