// Package render turns a diagnostic report into human-readable text or JSON.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mcpdoctor/internal/diagnose"
	"mcpdoctor/internal/validation"

	"github.com/charmbracelet/lipgloss"
)

// Styles for terminal output. All colors are specified using hex codes.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5fd7ff"))

	sourceStyle = lipgloss.NewStyle().
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff005f")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffd700"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a8a8a8"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff5f")).
			Bold(true)

	faintStyle = lipgloss.NewStyle().
			Faint(true)
)

// JSON writes the report as indented JSON.
func JSON(w io.Writer, report *diagnose.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Text writes a human-readable rendition of the report.
func Text(w io.Writer, report *diagnose.Report) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("MCP server diagnostics"))
	b.WriteString("\n")
	b.WriteString(faintStyle.Render(fmt.Sprintf("run %s at %s", report.ID, report.GeneratedAt.Format("2006-01-02 15:04:05"))))
	b.WriteString("\n\n")

	for _, result := range report.ValidationResults {
		writeSource(&b, result)
	}

	for _, sp := range report.ProbeResults {
		writeProbe(&b, sp)
	}

	if len(report.DuplicateServerNames) > 0 {
		b.WriteString(sourceStyle.Render("Duplicate server names"))
		b.WriteString("\n")
		for _, dup := range report.DuplicateServerNames {
			b.WriteString(fmt.Sprintf("  %s declared in: %s\n", dup.Name, strings.Join(dup.SourceLocations, ", ")))
		}
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("%d/%d servers healthy\n", report.HealthyServerCount, report.TotalServerCount))
	for _, rec := range report.Recommendations {
		b.WriteString("  → " + rec + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSource(b *strings.Builder, result validation.Result) {
	marker := successStyle.Render("✓")
	if !result.IsValid {
		marker = errorStyle.Render("✗")
	}
	b.WriteString(fmt.Sprintf("%s %s (%d servers)\n", marker, sourceStyle.Render(result.SourceID), len(result.Servers)))

	for _, issue := range result.Issues {
		name := issue.ServerName
		if name == "" {
			name = "(source)"
		}
		b.WriteString(fmt.Sprintf("  %s %s: %s\n", severityBadge(issue.Severity), name, issue.Message))
		if issue.SuggestedFix != "" {
			b.WriteString(faintStyle.Render(fmt.Sprintf("      fix: %s", issue.SuggestedFix)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
}

func writeProbe(b *strings.Builder, sp diagnose.ServerProbe) {
	r := sp.Result

	marker := successStyle.Render("✓")
	if r.Error != "" {
		marker = errorStyle.Render("✗")
	}

	identity := ""
	if r.ServerInfo != nil {
		identity = fmt.Sprintf(" [%s %s]", r.ServerInfo.Name, r.ServerInfo.Version)
	}
	b.WriteString(fmt.Sprintf("%s probe %s%s (%dms)\n", marker, sourceStyle.Render(sp.Server.Name), identity, r.ElapsedMs))

	if r.Error != "" {
		b.WriteString("  " + errorStyle.Render(r.Error) + "\n")
		if r.Stderr != "" {
			b.WriteString(faintStyle.Render("  stderr: "+strings.TrimSpace(r.Stderr)) + "\n")
		}
	}

	b.WriteString(fmt.Sprintf("  %d tools, %d resources, %d prompts\n", len(r.Tools), len(r.Resources), len(r.Prompts)))
	for _, tool := range r.Tools {
		line := "    tool " + tool.Name
		if tool.Description != "" {
			line += ": " + tool.Description
		}
		b.WriteString(line + "\n")
	}
	for _, res := range r.Resources {
		b.WriteString("    resource " + res.URI + "\n")
	}
	for _, prompt := range r.Prompts {
		b.WriteString("    prompt " + prompt.Name + "\n")
	}
	b.WriteString("\n")
}

func severityBadge(severity validation.Severity) string {
	switch severity {
	case validation.SeverityError:
		return errorStyle.Render("ERROR")
	case validation.SeverityWarning:
		return warningStyle.Render("WARN ")
	default:
		return infoStyle.Render("INFO ")
	}
}
