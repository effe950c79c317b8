package mcpconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"mcpdoctor/internal/logging"

	"github.com/adrg/xdg"
)

// Locate returns the declaration files that exist on this machine, in the
// order they should be diagnosed: the user-scoped document first, then the
// project document in workDir, then any extra paths from the app config.
// Missing candidates are skipped silently; nothing here recurses into
// directories.
func Locate(workDir string, extraPaths []string) []Source {
	var sources []Source

	for _, path := range candidatePaths(workDir, extraPaths) {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				logging.Warn("Skipping unreadable declaration file", "path", path, "error", err)
			}
			continue
		}
		sources = append(sources, Source{ID: path, Path: path, Raw: raw})
	}

	return sources
}

// LoadFile reads a single declaration file into a Source.
func LoadFile(path string) (Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read declaration file: %w", err)
	}
	return Source{ID: path, Path: path, Raw: raw}, nil
}

func candidatePaths(workDir string, extraPaths []string) []string {
	var candidates []string

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".claude.json"))
	}
	candidates = append(candidates, filepath.Join(xdg.ConfigHome, "mcp", "servers.json"))

	if workDir != "" {
		candidates = append(candidates, filepath.Join(workDir, ".mcp.json"))
	}

	candidates = append(candidates, extraPaths...)

	// Drop duplicates, keeping first occurrence.
	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		clean := filepath.Clean(c)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		unique = append(unique, clean)
	}
	return unique
}
