// Package server exposes the command validation pipeline as MCP tools
// over stdio. Tool handlers translate engine verdicts into JSON tool
// results; execution only ever happens after an approved verdict.
package server

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/cmdgate/cmdgate/internal/config"
	"github.com/cmdgate/cmdgate/internal/executor"
	"github.com/cmdgate/cmdgate/internal/logging"
	"github.com/cmdgate/cmdgate/internal/session"
)

// Server wires the configuration store, session manager and executor
// behind the MCP tool surface.
type Server struct {
	store    *config.Store
	sessions *session.Manager
	exec     *executor.Executor
	mcp      *server.MCPServer
	log      zerolog.Logger
}

// New builds the MCP server and registers every tool.
func New(store *config.Store, sessions *session.Manager, exec *executor.Executor) *Server {
	snap := store.Snapshot()
	s := &Server{
		store:    store,
		sessions: sessions,
		exec:     exec,
		log:      logging.With("server"),
	}
	s.mcp = server.NewMCPServer(
		snap.Server.Name,
		snap.Server.Version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// MCP returns the underlying MCP server, for tests and embedding.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Serve blocks, speaking the MCP protocol over stdin/stdout.
func (s *Server) Serve() error {
	s.log.Info().Msg("serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

// snapshot returns the live configuration and keeps the session TTL in
// step with it, so file reloads and runtime updates take effect on the
// next call.
func (s *Server) snapshot() *config.Snapshot {
	snap := s.store.Snapshot()
	s.sessions.SetTTL(snap.Security.SessionTimeout)
	return snap
}
