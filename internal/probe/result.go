package probe

import (
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// CapabilityFlags records which capability families the server declared
// during the handshake.
type CapabilityFlags struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
}

// Result is the outcome of probing one declared server. Exactly one Result
// is produced per probe call; every failure mode lands in Error alongside
// whatever capability data was collected before the failure. The capability
// slices start empty and may be partially populated when Error is set
// (the timeout case keeps everything that settled before the deadline).
type Result struct {
	Tools        []mcp.Tool          `json:"tools"`
	Resources    []mcp.Resource      `json:"resources"`
	Prompts      []mcp.Prompt        `json:"prompts"`
	ServerInfo   *mcp.Implementation `json:"serverInfo,omitempty"`
	Capabilities *CapabilityFlags    `json:"capabilities,omitempty"`
	// Stderr holds the tail of the server's standard error stream, for
	// operator debugging when a probe fails.
	Stderr    string `json:"stderr,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
	Error     string `json:"error,omitempty"`
}

// maxStderrBytes bounds how much server stderr a result retains.
const maxStderrBytes = 8 * 1024

// tailBuffer keeps the last maxStderrBytes written to it. The spawned
// process writes concurrently with the probe loop, so access is locked.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - maxStderrBytes; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
