package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	gfmcp "github.com/gateflow/gateflow/internal/mcp"
	"github.com/gateflow/gateflow/internal/service"
	"github.com/gateflow/gateflow/internal/webhook"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the catalog and
checkout flow as tools for AI agents. Supports stdio (default) and HTTP
transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with Claude Desktop or other MCP clients.

In HTTP mode, the server listens on the specified port for streaming
connections.`,
		Example: `  gateflow mcp                            # stdio mode (for Claude Desktop)
  gateflow mcp --transport http --port 3001  # HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	// Log to stderr: stdout carries the JSON-RPC stream in stdio mode.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	provider := newPaymentProvider()
	notifier := webhook.New(
		store,
		logger,
		viper.GetBool("webhooks.enabled"),
		viper.GetDuration("webhooks.timeout"),
	)
	orderSvc := service.NewOrderService(store, provider, notifier, logger)

	mcpSrv := gfmcp.NewMCPServer(store, orderSvc, newRatesProvider(), logger)

	switch transport {
	case "stdio":
		defer notifier.Wait()
		return mcpSrv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", port)
		defer notifier.Wait()
		return mcpSrv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
