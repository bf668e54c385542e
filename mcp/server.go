// Package mcp exposes an editstore State as Model Context Protocol tools
// over stdio.
package mcp

import (
	"sort"
	"sync"
	"time"

	"github.com/ByteMirror/editstore/log"
	"github.com/ByteMirror/editstore/state"
	"github.com/ByteMirror/editstore/store"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const serverInstructions = "This server owns a working directory and an in-memory scratch store. " +
	"Paths starting with \"::\" live in memory and never touch disk; every other path is relative to the root. " +
	"Use store_find or store_list to discover files and store_read to look at them. " +
	"Make every edit through store_patch: it snapshots what it touches and returns a rollback_id. " +
	"A failing change does not stop the others; failures with retryable=true can be fixed and resubmitted. " +
	"Use store_revert(id) to roll back a patch together with every patch before it. " +
	"store_diff shows the net edit made to a file since it was first touched."

// Options configures an EditServer.
type Options struct {
	// Cwd resolves relative find patterns. Defaults to the directory root.
	Cwd store.AbsPath
	// SessionFile, when set, is rewritten after every mutating tool call.
	SessionFile string
}

// EditServer wraps an MCP server around a State. Tool calls are
// serialized.
type EditServer struct {
	server *mcpserver.MCPServer
	sess   *session
}

// session is the state shared by every tool handler.
type session struct {
	mu          sync.Mutex
	st          *state.State
	cwd         store.AbsPath
	sessionFile string
	// external holds paths edited outside the engine since the last patch.
	external map[string]struct{}
}

// NewEditServer registers the store tools for st.
func NewEditServer(st *state.State, version string, opts Options) *EditServer {
	s := mcpserver.NewMCPServer(
		"editstore",
		version,
		mcpserver.WithInstructions(serverInstructions),
	)

	cwd := opts.Cwd
	if cwd.IsZero() {
		if dir := st.Directory(); dir != nil {
			cwd = dir.Root()
		} else {
			cwd, _ = store.NewAbsPath("/")
		}
	}

	e := &EditServer{
		server: s,
		sess: &session{
			st:          st,
			cwd:         cwd,
			sessionFile: opts.SessionFile,
			external:    make(map[string]struct{}),
		},
	}
	e.registerReadTools()
	e.registerWriteTools()

	log.InfoLog.Printf("mcp server created: session=%s cwd=%s", st.SessionID(), cwd)
	return e
}

// Watch reports out-of-band edits under the attached directory in the next
// store_patch result. It is a no-op without a directory.
func (e *EditServer) Watch() (stop func(), err error) {
	dir := e.sess.st.Directory()
	if dir == nil {
		return func() {}, nil
	}
	return dir.StartWatcher(e.sess.noteExternal)
}

var externalLogEvery = log.NewEvery(10 * time.Second)

func (s *session) noteExternal(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		s.external[p] = struct{}{}
	}
	if externalLogEvery.ShouldLog() {
		log.InfoLog.Printf("external edits: %v", paths)
	}
}

// drainExternal returns and clears the pending external edits. Callers
// hold s.mu.
func (s *session) drainExternal() []string {
	if len(s.external) == 0 {
		return nil
	}
	paths := make([]string, 0, len(s.external))
	for p := range s.external {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	clear(s.external)
	return paths
}

// persist saves the session file, if any. Callers hold s.mu.
func (s *session) persist() {
	if s.sessionFile == "" {
		return
	}
	if err := s.st.Save(s.sessionFile); err != nil {
		log.ErrorLog.Printf("save session %s: %v", s.sessionFile, err)
	}
}

// Serve starts the MCP server using stdio transport.
func (e *EditServer) Serve() error {
	return mcpserver.ServeStdio(e.server)
}
