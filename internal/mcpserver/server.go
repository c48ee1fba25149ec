// Package mcpserver exposes the session manager over the Model Context
// Protocol, so MCP clients can drive forwards and resource cleanup with the
// same semantics as the CLI.
package mcpserver

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"fwdctl/internal/orchestrator"
	"fwdctl/internal/registry"
	"fwdctl/internal/sweeper"
	"fwdctl/pkg/logging"
)

// MCPServer serves the fwdctl tool set over stdio.
type MCPServer struct {
	orch   *orchestrator.Orchestrator
	reg    *registry.Registry
	sweep  *sweeper.Sweeper
	server *server.MCPServer
}

// New creates the MCP server and registers all tools.
func New(orch *orchestrator.Orchestrator, reg *registry.Registry, sweep *sweeper.Sweeper, version string) *MCPServer {
	s := &MCPServer{
		orch:  orch,
		reg:   reg,
		sweep: sweep,
		server: server.NewMCPServer(
			"fwdctl",
			version,
			server.WithToolCapabilities(true),
		),
	}
	s.registerTools()
	return s
}

func (s *MCPServer) registerTools() {
	s.server.AddTool(mcp.NewTool("config_list",
		mcp.WithDescription("List all port-forward configurations with their running state"),
	), s.handleConfigList)

	s.server.AddTool(mcp.NewTool("config_get",
		mcp.WithDescription("Get one port-forward configuration by id"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Configuration id"),
		),
	), s.handleConfigGet)

	s.server.AddTool(mcp.NewTool("forward_start",
		mcp.WithDescription("Start the port-forward session for a configuration"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Configuration id to start"),
		),
	), s.handleForwardStart)

	s.server.AddTool(mcp.NewTool("forward_stop",
		mcp.WithDescription("Stop the port-forward session for a configuration"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Configuration id to stop"),
		),
	), s.handleForwardStop)

	s.server.AddTool(mcp.NewTool("forward_start_all",
		mcp.WithDescription("Start sessions for every configuration that is not already running"),
	), s.handleForwardStartAll)

	s.server.AddTool(mcp.NewTool("forward_stop_all",
		mcp.WithDescription("Stop every running session"),
	), s.handleForwardStopAll)

	s.server.AddTool(mcp.NewTool("resources_list",
		mcp.WithDescription("List cluster resources created by fwdctl, with orphan classification"),
		mcp.WithString("context",
			mcp.Description("Cluster context to list; all known contexts when omitted"),
		),
	), s.handleResourcesList)

	s.server.AddTool(mcp.NewTool("resources_cleanup",
		mcp.WithDescription("Delete fwdctl-created cluster resources in bulk"),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Description("Which resources to delete: orphaned resources only, or all"),
			mcp.Enum("orphaned", "all"),
		),
		mcp.WithString("context",
			mcp.Description("Cluster context to clean; all known contexts when omitted"),
		),
	), s.handleResourcesCleanup)
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *MCPServer) ServeStdio() error {
	logging.Info("MCPServer", "Serving MCP tools on stdio")
	if err := server.ServeStdio(s.server); err != nil {
		return fmt.Errorf("MCP stdio server failed: %w", err)
	}
	return nil
}
