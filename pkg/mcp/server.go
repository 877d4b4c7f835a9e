// Package mcp exposes guildgen generation and its statistics as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gildcraft/guildgen/pkg/generate"
	"github.com/gildcraft/guildgen/pkg/tracker"
)

// Server wraps an MCP server over the forwarder.
type Server struct {
	fwd     *generate.Forwarder
	tracker tracker.Tracker
	mcp     *server.MCPServer
}

// New creates a Server. t may be nil when the usage ledger is disabled.
func New(fwd *generate.Forwarder, t tracker.Tracker, version string) *Server {
	s := &Server{
		fwd:     fwd,
		tracker: t,
		mcp: server.NewMCPServer(
			"guildgen",
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Run serves MCP over stdio-style streams. It blocks until r is closed or
// ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, r, w)
}
