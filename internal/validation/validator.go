// Package validation statically checks MCP server declarations.
//
// Checks are pure and synchronous: beyond existence lookups for commands and
// argument paths they touch neither the network nor the declared processes.
// Issues are collected, never returned as errors, so one broken declaration
// does not hide problems in its siblings.
package validation

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"mcpdoctor/internal/mcpconfig"
)

// Severity ranks a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one finding against a server declaration. ServerName is empty for
// source-level issues (e.g. the whole document failed to parse).
type Issue struct {
	ServerName   string   `json:"serverName,omitempty"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	SuggestedFix string   `json:"suggestedFix,omitempty"`
}

// Result holds the validation outcome for one declaration source.
// IsValid holds iff no issue has error severity.
type Result struct {
	SourceID string                  `json:"sourceId"`
	Servers  []mcpconfig.ServerEntry `json:"servers"`
	Issues   []Issue                 `json:"issues"`
	IsValid  bool                    `json:"isValid"`
}

// placeholderPattern matches unresolved ${...} template tokens. Declarations
// carrying one are launched verbatim and never resolved against the
// filesystem; we cannot know what the token expands to.
var placeholderPattern = regexp.MustCompile(`\$\{[^}]*\}`)

// HasPlaceholder reports whether s contains an unresolved ${...} token.
func HasPlaceholder(s string) bool {
	return placeholderPattern.MatchString(s)
}

// ValidateSource extracts a source's server entries and validates them.
// A document that cannot be parsed or matches no recognized shape yields a
// single source-level error issue and no entries.
func ValidateSource(src mcpconfig.Source) Result {
	servers, err := mcpconfig.Extract(src)
	if err != nil {
		return Result{
			SourceID: src.ID,
			Issues: []Issue{{
				Severity:     SeverityError,
				Message:      fmt.Sprintf("failed to read server declarations: %v", err),
				SuggestedFix: "check the file is valid JSON/YAML with an mcpServers section",
			}},
			IsValid: false,
		}
	}
	return ValidateServers(src.ID, servers)
}

// ValidateServers applies every check to each entry, in order, accumulating
// issues. An entry can accrue issues from multiple checks.
func ValidateServers(sourceID string, servers []mcpconfig.ServerEntry) Result {
	result := Result{
		SourceID: sourceID,
		Servers:  servers,
		IsValid:  true,
	}

	for _, entry := range servers {
		result.Issues = append(result.Issues, validateServer(entry)...)
	}

	for _, issue := range result.Issues {
		if issue.Severity == SeverityError {
			result.IsValid = false
			break
		}
	}

	return result
}

func validateServer(entry mcpconfig.ServerEntry) []Issue {
	var issues []Issue

	if strings.TrimSpace(entry.Command) == "" {
		issues = append(issues, Issue{
			ServerName:   entry.Name,
			Severity:     SeverityError,
			Message:      "server has no command configured",
			SuggestedFix: `add a "command" field to the server declaration`,
		})
	} else {
		// A ${...} token means the command cannot be resolved yet; neither a
		// pass nor a failure is recorded for it.
		if !HasPlaceholder(entry.Command) {
			if err := resolveCommand(entry.Command); err != nil {
				issues = append(issues, Issue{
					ServerName:   entry.Name,
					Severity:     SeverityError,
					Message:      fmt.Sprintf("command %q not found: %v", entry.Command, err),
					SuggestedFix: fmt.Sprintf("install %s or correct the command path", entry.Command),
				})
			}
		}

		for _, arg := range entry.Args {
			if !strings.HasPrefix(arg, string(os.PathSeparator)) || HasPlaceholder(arg) {
				continue
			}
			if _, err := os.Stat(arg); err != nil {
				issues = append(issues, Issue{
					ServerName: entry.Name,
					Severity:   SeverityWarning,
					Message:    fmt.Sprintf("argument path %q does not exist", arg),
				})
			}
		}
	}

	if entry.Type == "" {
		issues = append(issues, Issue{
			ServerName: entry.Name,
			Severity:   SeverityInfo,
			Message:    "no transport type specified, assuming stdio",
		})
	}

	for _, key := range sortedEnvKeys(entry.Env) {
		if entry.Env[key] == "" {
			issues = append(issues, Issue{
				ServerName: entry.Name,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("environment variable %s has an empty value", key),
			})
		}
	}

	return issues
}

// resolveCommand checks that a command can be launched: absolute paths must
// exist, bare names must be on PATH.
func resolveCommand(cmd string) error {
	if filepath.IsAbs(cmd) {
		if _, err := os.Stat(cmd); err != nil {
			return err
		}
		return nil
	}
	_, err := exec.LookPath(cmd)
	return err
}

func sortedEnvKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
