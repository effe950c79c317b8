package mcpconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonSource(t *testing.T, body string) Source {
	t.Helper()
	return Source{ID: "/home/test/.claude.json", Path: "/home/test/.claude.json", Raw: []byte(body)}
}

func TestExtractProjectShape(t *testing.T) {
	src := Source{
		ID:   "/work/.mcp.json",
		Path: "/work/.mcp.json",
		Raw: []byte(`{
			"mcpServers": {
				"search": {
					"command": "npx",
					"args": ["-y", "@example/search-server"],
					"env": {"SEARCH_TOKEN": "abc"},
					"type": "stdio"
				},
				"files": {"command": "/usr/local/bin/file-server"}
			}
		}`),
	}

	entries, err := Extract(src)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Names come out sorted because the declaration map is unordered.
	assert.Equal(t, "files", entries[0].Name)
	assert.Equal(t, "/usr/local/bin/file-server", entries[0].Command)
	assert.Empty(t, entries[0].Type)
	assert.Equal(t, "/work/.mcp.json", entries[0].SourceID)

	assert.Equal(t, "search", entries[1].Name)
	assert.Equal(t, []string{"-y", "@example/search-server"}, entries[1].Args)
	assert.Equal(t, map[string]string{"SEARCH_TOKEN": "abc"}, entries[1].Env)
	assert.Equal(t, "stdio", entries[1].Type)
}

func TestExtractUserShapeWithProjectOverrides(t *testing.T) {
	src := jsonSource(t, `{
		"mcpServers": {
			"global": {"command": "global-server"}
		},
		"projects": {
			"/work/b": {"mcpServers": {"beta": {"command": "beta-server"}}},
			"/work/a": {"mcpServers": {"alpha": {"command": "alpha-server"}}}
		}
	}`)

	entries, err := Extract(src)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Top-level entries first, then override sections in project-key order.
	assert.Equal(t, "global", entries[0].Name)
	assert.Equal(t, "/home/test/.claude.json", entries[0].SourceID)

	assert.Equal(t, "alpha", entries[1].Name)
	assert.Equal(t, "/home/test/.claude.json [project /work/a]", entries[1].SourceID)

	assert.Equal(t, "beta", entries[2].Name)
	assert.Equal(t, "/home/test/.claude.json [project /work/b]", entries[2].SourceID)
}

func TestExtractYAMLDocument(t *testing.T) {
	src := Source{
		ID:   "/etc/mcp/servers.yaml",
		Path: "/etc/mcp/servers.yaml",
		Raw: []byte(`mcpServers:
  search:
    command: search-server
    args: ["--index", "/var/index"]
`),
	}

	entries, err := Extract(src)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "search", entries[0].Name)
	assert.Equal(t, []string{"--index", "/var/index"}, entries[0].Args)
}

func TestExtractMalformedDocument(t *testing.T) {
	entries, err := Extract(jsonSource(t, `{"mcpServers": {`))
	assert.Nil(t, entries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse")
}

func TestExtractUnrecognizedShape(t *testing.T) {
	entries, err := Extract(jsonSource(t, `{"servers": {"a": {"command": "x"}}}`))
	assert.Nil(t, entries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mcpServers section")
}

func TestExtractEmptyServerMap(t *testing.T) {
	entries, err := Extract(jsonSource(t, `{"mcpServers": {}}`))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
