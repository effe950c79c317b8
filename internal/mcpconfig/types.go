// Package mcpconfig parses MCP server declaration documents into normalized
// server entries.
//
// Two document shapes are recognized: a project-scoped document with a
// top-level "mcpServers" map (the .mcp.json shape), and a user-scoped
// document that additionally carries per-project override sections under
// "projects" (the ~/.claude.json shape). Entries extracted from an override
// section record both the file and the project key in their SourceID so
// validation issues can be traced back precisely.
package mcpconfig

// ServerEntry is the normalized record of one declared MCP server.
// Entries are immutable once extracted; the validator and prober only read them.
type ServerEntry struct {
	// Name is the key the server was declared under, unique within a source.
	Name string `json:"name"`
	// Command is the executable to launch, verbatim from the declaration.
	Command string `json:"command"`
	// Args are the launch arguments, in declaration order.
	Args []string `json:"args,omitempty"`
	// Env holds environment overrides merged over the inherited environment
	// at launch time.
	Env map[string]string `json:"env,omitempty"`
	// Type is the declared transport hint ("stdio", "sse", ...). Empty when
	// the declaration omitted it; stdio is assumed then.
	Type string `json:"type,omitempty"`
	// SourceID identifies the declaring document, plus the project override
	// key when the entry came from an override section.
	SourceID string `json:"sourceId"`
}

// Source is one declaration document handed to the diagnostics engine.
type Source struct {
	// ID is the display identifier, usually the file path.
	ID string
	// Path is the on-disk location the document was read from.
	Path string
	// Raw is the unparsed document body.
	Raw []byte
}

// launchSpec mirrors one server's declaration inside a config document.
type launchSpec struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args" yaml:"args"`
	Env     map[string]string `json:"env" yaml:"env"`
	Type    string            `json:"type" yaml:"type"`
}

// document is the superset of both recognized declaration shapes.
type document struct {
	MCPServers map[string]launchSpec     `json:"mcpServers" yaml:"mcpServers"`
	Projects   map[string]projectSection `json:"projects" yaml:"projects"`
}

// projectSection is one per-project override inside a user-scoped document.
type projectSection struct {
	MCPServers map[string]launchSpec `json:"mcpServers" yaml:"mcpServers"`
}
