// Package probe launches a declared MCP server and walks its discovery
// handshake over newline-delimited JSON-RPC on the process's standard
// input/output streams.
//
// One probe owns one child process and its three pipes exclusively. The
// probe races the handshake against a wall-clock deadline; whichever
// finishes first wins, the process is killed either way, and the caller
// always receives exactly one Result. The prober never returns a Go error
// for a misbehaving peer; every failure mode is reported through the
// Result's Error field.
package probe

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"mcpdoctor/internal/logging"
	"mcpdoctor/internal/mcpconfig"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	clientName    = "mcpdoctor"
	clientVersion = "0.1.0"

	// notifyInitialized is the one-way notification completing the handshake.
	notifyInitialized = "notifications/initialized"

	// maxLineBytes bounds one JSON-RPC line; large tool inventories fit
	// comfortably, runaway output does not.
	maxLineBytes = 8 * 1024 * 1024
)

// request is an outbound JSON-RPC 2.0 message. A nil ID makes it a
// notification.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is an inbound JSON-RPC 2.0 message. Lines that do not decode into
// this shape are auxiliary output and get dropped.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type initializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    mcp.ClientCapabilities `json:"capabilities"`
	ClientInfo      mcp.Implementation     `json:"clientInfo"`
}

// Prober runs capability probes with a shared deadline.
type Prober struct {
	timeout time.Duration
	logger  *logging.AppLogger
}

// New creates a Prober. A non-positive timeout falls back to 10 seconds.
func New(timeout time.Duration, logger *logging.AppLogger) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Prober{timeout: timeout, logger: logger}
}

// Timeout returns the deadline applied to each probe.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Probe spawns the server described by entry and executes the discovery
// handshake: initialize, the initialized notification, then tools/list,
// resources/list and prompts/list. Discovery responses are matched by
// request id and may arrive in any order. The context is honored as an
// external cancellation signal; cancellation kills the process and reports
// a transport-style error in the result.
func (p *Prober) Probe(ctx context.Context, entry mcpconfig.ServerEntry) Result {
	start := time.Now()

	result := Result{
		Tools:     []mcp.Tool{},
		Resources: []mcp.Resource{},
		Prompts:   []mcp.Prompt{},
	}
	finish := func() Result {
		result.ElapsedMs = time.Since(start).Milliseconds()
		return result
	}

	cmd := exec.Command(entry.Command, entry.Args...)
	cmd.Env = mergedEnv(entry.Env)

	var stderr tailBuffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		result.Error = fmt.Sprintf("failed to open stdin pipe: %v", err)
		return finish()
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		result.Error = fmt.Sprintf("failed to open stdout pipe: %v", err)
		return finish()
	}

	if err := cmd.Start(); err != nil {
		result.Error = fmt.Sprintf("failed to start server: %v", err)
		return finish()
	}

	p.logger.Debug("Server spawned", "server", entry.Name, "command", entry.Command, "pid", cmd.Process.Pid)

	s := &session{
		prober:  p,
		entry:   entry,
		cmd:     cmd,
		stdin:   stdin,
		enc:     json.NewEncoder(stdin),
		pending: make(map[int64]string),
		result:  &result,
		done:    make(chan struct{}),
	}

	s.run(ctx, stdout)

	result.Stderr = stderr.String()
	return finish()
}

// session is the per-probe state machine: the pending id→method table, the
// settled-count for the three discovery calls, and the owned process.
type session struct {
	prober  *Prober
	entry   mcpconfig.ServerEntry
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	enc     *json.Encoder
	pending map[int64]string
	nextID  int64
	settled int
	result  *Result
	done    chan struct{}
}

func (s *session) run(ctx context.Context, stdout io.Reader) {
	lines := make(chan []byte)
	go s.readLines(stdout, lines)

	s.send(s.newRequest(string(mcp.MethodInitialize), initializeParams{
		ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
		Capabilities:    mcp.ClientCapabilities{},
		ClientInfo:      mcp.Implementation{Name: clientName, Version: clientVersion},
	}))

	timer := time.NewTimer(s.prober.timeout)
	defer timer.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				// stdout closed: the server exited (or shut its output)
				// before discovery completed.
				s.finalizePrematureExit()
				return
			}
			if terminal := s.handleLine(line); terminal {
				s.terminate()
				return
			}
		case <-timer.C:
			s.terminate()
			if s.result.Error == "" {
				s.result.Error = fmt.Sprintf("probe timed out after %s", s.prober.timeout)
			}
			return
		case <-ctx.Done():
			s.terminate()
			if s.result.Error == "" {
				s.result.Error = fmt.Sprintf("probe cancelled: %v", ctx.Err())
			}
			return
		}
	}
}

// readLines splits stdout on newlines and forwards each complete line.
// The done channel releases this goroutine once the probe has finalized.
func (s *session) readLines(stdout io.Reader, lines chan<- []byte) {
	defer close(lines)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		select {
		case lines <- line:
		case <-s.done:
			return
		}
	}
}

// handleLine parses one stdout line and advances the state machine.
// Unparseable lines and messages with no pending id are dropped silently;
// servers are allowed to mix diagnostic text into their output stream.
// The return value reports a terminal state (handshake rejected, or all
// three discovery methods settled).
func (s *session) handleLine(line []byte) bool {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil || resp.ID == nil {
		s.prober.logger.Debug("Ignoring non-response output", "server", s.entry.Name, "line", string(line))
		return false
	}

	method, ok := s.pending[*resp.ID]
	if !ok {
		return false
	}
	delete(s.pending, *resp.ID)

	if method == string(mcp.MethodInitialize) {
		return s.handleInitializeResponse(resp)
	}
	return s.handleDiscoveryResponse(method, resp)
}

func (s *session) handleInitializeResponse(resp response) bool {
	if resp.Error != nil {
		s.result.Error = fmt.Sprintf("handshake rejected: %s", resp.Error.Message)
		return true
	}

	var init mcp.InitializeResult
	if err := json.Unmarshal(resp.Result, &init); err == nil {
		info := init.ServerInfo
		s.result.ServerInfo = &info
		s.result.Capabilities = &CapabilityFlags{
			Tools:     init.Capabilities.Tools != nil,
			Resources: init.Capabilities.Resources != nil,
			Prompts:   init.Capabilities.Prompts != nil,
		}
	} else {
		s.prober.logger.Debug("Unreadable initialize payload", "server", s.entry.Name, "error", err)
	}

	// The notification must precede every discovery request.
	s.send(request{JSONRPC: mcp.JSONRPC_VERSION, Method: notifyInitialized})
	s.send(s.newRequest(string(mcp.MethodToolsList), struct{}{}))
	s.send(s.newRequest(string(mcp.MethodResourcesList), struct{}{}))
	s.send(s.newRequest(string(mcp.MethodPromptsList), struct{}{}))
	return false
}

// handleDiscoveryResponse settles one discovery method. A method-level error
// leaves that capability slot empty; it does not fail the probe.
func (s *session) handleDiscoveryResponse(method string, resp response) bool {
	if resp.Error == nil {
		switch method {
		case string(mcp.MethodToolsList):
			var list mcp.ListToolsResult
			if err := json.Unmarshal(resp.Result, &list); err == nil && list.Tools != nil {
				s.result.Tools = list.Tools
			}
		case string(mcp.MethodResourcesList):
			var list mcp.ListResourcesResult
			if err := json.Unmarshal(resp.Result, &list); err == nil && list.Resources != nil {
				s.result.Resources = list.Resources
			}
		case string(mcp.MethodPromptsList):
			var list mcp.ListPromptsResult
			if err := json.Unmarshal(resp.Result, &list); err == nil && list.Prompts != nil {
				s.result.Prompts = list.Prompts
			}
		}
	} else {
		s.prober.logger.Debug("Discovery method failed", "server", s.entry.Name, "method", method, "error", resp.Error.Message)
	}

	s.settled++
	return s.settled == 3
}

func (s *session) newRequest(method string, params any) request {
	s.nextID++
	id := s.nextID
	s.pending[id] = method
	return request{JSONRPC: mcp.JSONRPC_VERSION, ID: &id, Method: method, Params: params}
}

// send writes one newline-terminated message to the server's stdin. Write
// failures are not fatal here: a dead peer surfaces as stdout EOF, which the
// run loop turns into a premature-exit result.
func (s *session) send(req request) {
	if err := s.enc.Encode(req); err != nil {
		s.prober.logger.Debug("Write to server failed", "server", s.entry.Name, "method", req.Method, "error", err)
	}
}

// finalizePrematureExit reaps the exited process and records its exit code.
// Capability data that settled before the exit stays in the result.
func (s *session) finalizePrematureExit() {
	waitErr := s.terminate()
	if s.result.Error != "" {
		return
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		s.result.Error = fmt.Sprintf("server exited prematurely with code %d", exitErr.ExitCode())
	} else if waitErr != nil {
		s.result.Error = fmt.Sprintf("server exited prematurely: %v", waitErr)
	} else {
		s.result.Error = "server exited prematurely with code 0"
	}
}

// terminate kills and reaps the process. Every exit path of the probe runs
// through here exactly once; no child outlives its probe.
func (s *session) terminate() error {
	close(s.done)
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.cmd.Wait()
}

// mergedEnv lays the declared overrides over the inherited environment.
func mergedEnv(overrides map[string]string) []string {
	env := os.Environ()
	for key, value := range overrides {
		env = append(env, key+"="+value)
	}
	return env
}
