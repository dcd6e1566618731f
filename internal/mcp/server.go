// Package mcp exposes bridge introspection to MCP clients over stdio.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/xwbridge/internal/compositor"
	"github.com/1broseidon/xwbridge/internal/ipc"
	"github.com/1broseidon/xwbridge/internal/output"
)

const (
	ServerName    = "xwbridge"
	ServerVersion = "0.1.0"
)

// Daemon is the part of the IPC client the tools use.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListSurfaces() ([]compositor.SurfaceSnapshot, error)
	ListOutputs() ([]compositor.OutputSnapshot, error)
	ApplyOutput(info output.Info) error
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for bridge introspection.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
}

// NewServer creates a new MCP server that queries daemon.
func NewServer(daemon Daemon) *Server {
	s := &Server{daemon: daemon}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report whether the X11 window manager session is running, its display, the decoration policy, and how many surfaces, unpaired windows and outputs the bridge tracks.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_surfaces",
		Description: "List the surfaces the bridge knows with their role (toplevel, popup, cursor), pairing state, X11 window, parent and children. Surfaces in pending_x11_pairing state are still waiting for their window.",
	}, s.handleListSurfaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_outputs",
		Description: "List the outputs advertised to X11 clients with their current mode, transform, scale and position.",
	}, s.handleListOutputs)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "apply_output",
		Description: "Create or update an output from a descriptor. Re-applying the same descriptor is a no-op. Returns the output name.",
	}, s.handleApplyOutput)
}
