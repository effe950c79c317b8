package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"mcpdoctor/internal/diagnose"
	"mcpdoctor/internal/mcpconfig"
	"mcpdoctor/internal/probe"
	"mcpdoctor/internal/validation"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *diagnose.Report {
	return &diagnose.Report{
		ID: "test-run",
		ValidationResults: []validation.Result{
			{
				SourceID: "/work/.mcp.json",
				Servers: []mcpconfig.ServerEntry{
					{Name: "search", Command: "sh", Type: "stdio", SourceID: "/work/.mcp.json"},
					{Name: "broken", Command: "", Type: "stdio", SourceID: "/work/.mcp.json"},
				},
				Issues: []validation.Issue{
					{
						ServerName:   "broken",
						Severity:     validation.SeverityError,
						Message:      "server has no command configured",
						SuggestedFix: `add a "command" field to the server declaration`,
					},
				},
				IsValid: false,
			},
		},
		ProbeResults: []diagnose.ServerProbe{
			{
				Server: mcpconfig.ServerEntry{Name: "search", Command: "sh", SourceID: "/work/.mcp.json"},
				Result: probe.Result{
					Tools:      []mcp.Tool{{Name: "web_search", Description: "search the web"}},
					Resources:  []mcp.Resource{},
					Prompts:    []mcp.Prompt{},
					ServerInfo: &mcp.Implementation{Name: "search-server", Version: "2.0"},
					ElapsedMs:  42,
				},
			},
		},
		DuplicateServerNames: []diagnose.DuplicateServerName{
			{Name: "search", SourceLocations: []string{"/work/.mcp.json", "/home/u/.claude.json"}},
		},
		TotalServerCount:   2,
		HealthyServerCount: 1,
		Recommendations:    []string{"1 server(s) have configuration errors; fix the error-severity issues above."},
		GeneratedAt:        time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTextRendering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "/work/.mcp.json")
	assert.Contains(t, out, "server has no command configured")
	assert.Contains(t, out, `add a "command" field`)
	assert.Contains(t, out, "search-server")
	assert.Contains(t, out, "1 tools, 0 resources, 0 prompts")
	assert.Contains(t, out, "web_search")
	assert.Contains(t, out, "1/2 servers healthy")
	assert.Contains(t, out, "configuration errors")
	assert.Contains(t, out, "declared in: /work/.mcp.json, /home/u/.claude.json")
}

func TestTextRenderingSourceLevelIssue(t *testing.T) {
	report := &diagnose.Report{
		ValidationResults: []validation.Result{
			{
				SourceID: "/work/bad.json",
				Issues: []validation.Issue{
					{Severity: validation.SeverityError, Message: "failed to read server declarations"},
				},
			},
		},
		Recommendations: []string{},
	}

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, report))
	assert.Contains(t, buf.String(), "(source)")
}

func TestJSONRendering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "test-run", decoded["id"])
	assert.EqualValues(t, 2, decoded["totalServerCount"])
	assert.EqualValues(t, 1, decoded["healthyServerCount"])

	probes, ok := decoded["probeResults"].([]any)
	require.True(t, ok)
	require.Len(t, probes, 1)
}
