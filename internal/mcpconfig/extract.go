package mcpconfig

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extract parses a declaration document and returns its normalized server
// entries: top-level servers first, then override sections in project-key
// order. Within each map entries come out in name order, since the source
// maps are unordered.
//
// A document that cannot be parsed, or that parses but matches neither
// recognized shape, yields zero entries and a single error; the caller
// records it as a source-level validation issue rather than aborting the run.
func Extract(src Source) ([]ServerEntry, error) {
	var doc document
	if err := unmarshalDocument(src, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", src.ID, err)
	}

	if doc.MCPServers == nil && doc.Projects == nil {
		return nil, fmt.Errorf("%s: no mcpServers section found", src.ID)
	}

	entries := entriesFromMap(doc.MCPServers, src.ID)

	for _, key := range sortedKeys(doc.Projects) {
		overrideID := fmt.Sprintf("%s [project %s]", src.ID, key)
		entries = append(entries, entriesFromMap(doc.Projects[key].MCPServers, overrideID)...)
	}

	return entries, nil
}

// unmarshalDocument picks the codec from the file extension. YAML documents
// are a supplement for hand-maintained declarations; every MCP client we know
// of writes JSON.
func unmarshalDocument(src Source, doc *document) error {
	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(src.Raw, doc)
	default:
		return json.Unmarshal(src.Raw, doc)
	}
}

func entriesFromMap(servers map[string]launchSpec, sourceID string) []ServerEntry {
	entries := make([]ServerEntry, 0, len(servers))
	for _, name := range sortedKeys(servers) {
		spec := servers[name]
		entries = append(entries, ServerEntry{
			Name:     name,
			Command:  spec.Command,
			Args:     spec.Args,
			Env:      spec.Env,
			Type:     spec.Type,
			SourceID: sourceID,
		})
	}
	return entries
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
