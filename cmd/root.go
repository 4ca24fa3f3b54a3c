package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-reason/internal/agent"
)

const (
	// transportStreamableHTTP is the only supported transport protocol
	transportStreamableHTTP = "streamable-http"

	defaultEndpoint = "http://localhost:8090/mcp"

	// envEndpoint overrides the default endpoint when the flag is not set
	envEndpoint = "MCP_REASON_ENDPOINT"
)

var (
	version         string
	endpoint        string
	timeout         time.Duration
	verbose         bool
	noColor         bool
	jsonRPC         bool
	repl            bool
	mcpServer       bool
	transport       string
	serverTransport string
	listenAddr      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcp-reason",
	Short: "MCP reasoning and diagnostics agent",
	Long: `mcp-reason is an agentic reasoning toolkit for MCP (Model Context Protocol) servers.

It connects to an MCP server via streamable-http transport, inspects the
available tools, resources, and prompts, and layers a multi-strategy
reasoning engine on top: ReAct loops, Tree-of-Thoughts beam search,
Reflexion self-improvement, Program-of-Thought symbolic execution, and
multi-agent consensus.

The tool supports multiple modes:
- Normal mode (default): Connect and wait for notifications
- REPL mode (--repl): Interactive exploration, reasoning, and diagnostics
- MCP Server mode (--mcp-server): Expose reasoning and diagnostics as MCP tools

In REPL mode, you can:
- List and describe tools, resources, and prompts
- Execute tools interactively with JSON arguments
- Run 'reason <mode> <goal>' to reason about the connected server
- Run 'diagnose' to probe the server and compose a diagnostic report

In MCP Server mode:
- The agent acts as an MCP server using stdio or streamable-http transport
- It exposes the REPL functionality plus 'reason' and 'diagnose' as MCP tools
- It's designed for integration with AI assistants

The 'reason' subcommand runs the reasoning engine offline, without any
server connection.

By default, it connects to http://localhost:8090/mcp. You can override this
with the --endpoint flag or the MCP_REASON_ENDPOINT environment variable.`,
	RunE: runMCPReason,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version for the application
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	// A .env alongside the binary can carry the endpoint override.
	_ = godotenv.Load()

	// Add flags
	rootCmd.Flags().StringVar(&endpoint, "endpoint", defaultEndpoint, "MCP endpoint URL (must end with /mcp)")
	rootCmd.Flags().StringVar(&transport, "transport", transportStreamableHTTP, "Transport protocol to use for client connections (streamable-http only)")
	rootCmd.Flags().StringVar(&serverTransport, "server-transport", "stdio", "Transport protocol for the MCP server itself (stdio, streamable-http)")
	rootCmd.Flags().StringVar(&listenAddr, "listen-addr", ":8899", "Listen address for streamable-http server (path is fixed to /mcp)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Timeout for waiting for notifications")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging (show keepalive messages)")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().BoolVar(&jsonRPC, "json-rpc", false, "Enable full JSON-RPC message logging")
	rootCmd.Flags().BoolVar(&repl, "repl", false, "Start interactive REPL mode")
	rootCmd.Flags().BoolVar(&mcpServer, "mcp-server", false, "Run as MCP server (stdio transport)")

	// Add subcommands
	rootCmd.AddCommand(newReasonCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	// Mark flags as mutually exclusive
	rootCmd.MarkFlagsMutuallyExclusive("repl", "mcp-server")
}

// resolveEndpoint applies the environment override when the flag is unset
func resolveEndpoint(cmd *cobra.Command) string {
	if cmd.Flags().Changed("endpoint") {
		return endpoint
	}
	if env := os.Getenv(envEndpoint); env != "" {
		return env
	}
	return endpoint
}

// validateTransport validates the transport configuration
func validateTransport(endpoint string) error {
	if transport == transportStreamableHTTP && !strings.HasSuffix(endpoint, "/mcp") {
		return fmt.Errorf("endpoint '%s' must end with /mcp for streamable-http transport", endpoint)
	}
	if transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport '%s' (only streamable-http is supported)", transport)
	}
	return nil
}

// setupSignalHandler sets up graceful shutdown on interrupt signals
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		if !mcpServer {
			fmt.Println("\nReceived interrupt signal, shutting down gracefully...")
		}
		cancel()
	}()
}

// runMCPServer runs the agent in MCP server mode
func runMCPServer(ctx context.Context, client *agent.Client, logger *agent.Logger) error {
	server, err := agent.NewMCPServer(client, serverTransport, logger, false)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.Info("Starting mcp-reason MCP server (transport: %s)...", serverTransport)
	if serverTransport == transportStreamableHTTP {
		addr := listenAddr
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		logger.Info("Listening on %s%s", addr, "/mcp")
	}

	if err := server.Start(ctx, listenAddr); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// runNormalMode runs the agent in normal (listen) mode
func runNormalMode(ctx context.Context, client *agent.Client, logger *agent.Logger) error {
	timeoutCtx, timeoutCancel := context.WithTimeout(ctx, timeout)
	defer timeoutCancel()

	if err := client.Listen(timeoutCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Info("Timeout reached after %v", timeout)
			return nil
		}
		return fmt.Errorf("agent error: %w", err)
	}
	return nil
}

func runMCPReason(cmd *cobra.Command, args []string) error {
	endpoint := resolveEndpoint(cmd)
	if err := validateTransport(endpoint); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	setupSignalHandler(cancel)

	logger := agent.NewLogger(verbose, !noColor, jsonRPC)

	client := agent.NewClient(agent.ClientConfig{
		Endpoint:  endpoint,
		Transport: transport,
		Logger:    logger,
		Version:   version,
	})
	if err := client.Run(ctx); err != nil {
		return fmt.Errorf("failed to connect client: %w", err)
	}

	if mcpServer {
		return runMCPServer(ctx, client, logger)
	}

	if repl {
		replHandler := agent.NewREPL(client, logger)
		if err := replHandler.Run(ctx); err != nil {
			return fmt.Errorf("REPL error: %w", err)
		}
		return nil
	}

	return runNormalMode(ctx, client, logger)
}
