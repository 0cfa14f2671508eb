package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/rates"
	"github.com/gateflow/gateflow/internal/service"
)

// MCPServer wraps the mcp-go server with GateFlow-specific tool and resource
// registrations. It exposes the catalog and order lifecycle as MCP tools so
// AI agents can browse products, run checkouts, and track orders.
type MCPServer struct {
	store    *config.Store
	orderSvc *service.OrderService
	rates    rates.Provider
	logger   *slog.Logger
	server   *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all GateFlow tools and
// resources. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(store *config.Store, orderSvc *service.OrderService, rp rates.Provider, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		store:    store,
		orderSvc: orderSvc,
		rates:    rp,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"GateFlow Commerce API",
		"0.1.0",
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	// Register tools (catalog, checkout, orders, refunds)
	s.registerTools(mcpServer)

	// Register resources (product catalog, order status template)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance. Useful for
// advanced configuration or testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode. This is the primary
// integration path for Claude Code, Claude Desktop, and other MCP clients
// that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001"). This is suitable for remote MCP clients.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

// toolAnnotation returns a standard ToolAnnotation for read-only vs
// mutating tools.
func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
