package agent

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the agent functionality and exposes it via MCP
type MCPServer struct {
	client          *Client
	logger          *Logger
	mcpServer       *server.MCPServer
	notifyClients   bool
	serverTransport string
}

// NewMCPServer creates a new MCP server that exposes agent functionality,
// including the reasoning strategies and the diagnostician
func NewMCPServer(client *Client, serverTransport string, logger *Logger, notifyClients bool) (*MCPServer, error) {
	// Create MCP server
	mcpServer := server.NewMCPServer(
		"mcp-reason-agent",
		"1.0.0",
		server.WithToolCapabilities(notifyClients),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)

	ms := &MCPServer{
		client:          client,
		logger:          logger,
		mcpServer:       mcpServer,
		notifyClients:   notifyClients,
		serverTransport: serverTransport,
	}

	// Register all tools
	ms.registerTools()

	return ms, nil
}

// Start starts the MCP server using stdio or streamable-http transport
func (m *MCPServer) Start(ctx context.Context, listenAddr string) error {
	// Start the server with the specified transport
	switch m.serverTransport {
	case "stdio":
		return server.ServeStdio(m.mcpServer)
	case "streamable-http":
		httpServer := server.NewStreamableHTTPServer(
			m.mcpServer,
			server.WithEndpointPath("/mcp"),
		)
		return httpServer.Start(listenAddr)
	default:
		return fmt.Errorf("unsupported server transport: %s", m.serverTransport)
	}
}

// registerTools registers all MCP tools
func (m *MCPServer) registerTools() {
	// List tools
	listToolsTool := mcp.NewTool(toolListTools,
		mcp.WithDescription("List all available tools from connected MCP servers"),
	)
	m.mcpServer.AddTool(listToolsTool, m.handleListTools)

	// List resources
	listResourcesTool := mcp.NewTool(toolListResources,
		mcp.WithDescription("List all available resources from connected MCP servers"),
	)
	m.mcpServer.AddTool(listResourcesTool, m.handleListResources)

	// List prompts
	listPromptsTool := mcp.NewTool(toolListPrompts,
		mcp.WithDescription("List all available prompts from connected MCP servers"),
	)
	m.mcpServer.AddTool(listPromptsTool, m.handleListPrompts)

	// Describe tool
	describeToolTool := mcp.NewTool(toolDescribeTool,
		mcp.WithDescription("Get detailed information about a specific tool"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the tool to describe"),
		),
	)
	m.mcpServer.AddTool(describeToolTool, m.handleDescribeTool)

	// Describe resource
	describeResourceTool := mcp.NewTool(toolDescribeResource,
		mcp.WithDescription("Get detailed information about a specific resource"),
		mcp.WithString("uri",
			mcp.Required(),
			mcp.Description("URI of the resource to describe"),
		),
	)
	m.mcpServer.AddTool(describeResourceTool, m.handleDescribeResource)

	// Describe prompt
	describePromptTool := mcp.NewTool(toolDescribePrompt,
		mcp.WithDescription("Get detailed information about a specific prompt"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the prompt to describe"),
		),
	)
	m.mcpServer.AddTool(describePromptTool, m.handleDescribePrompt)

	// Call tool
	callToolTool := mcp.NewTool(toolCallTool,
		mcp.WithDescription("Execute a tool with the given arguments"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the tool to call"),
		),
		mcp.WithObject("arguments",
			mcp.Description("Arguments to pass to the tool (as JSON object)"),
		),
	)
	m.mcpServer.AddTool(callToolTool, m.handleCallTool)

	// Get resource
	getResourceTool := mcp.NewTool(toolGetResource,
		mcp.WithDescription("Retrieve the contents of a resource"),
		mcp.WithString("uri",
			mcp.Required(),
			mcp.Description("URI of the resource to retrieve"),
		),
	)
	m.mcpServer.AddTool(getResourceTool, m.handleGetResource)

	// Get prompt
	getPromptTool := mcp.NewTool(toolGetPrompt,
		mcp.WithDescription("Get a prompt with the given arguments"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the prompt to get"),
		),
		mcp.WithObject("arguments",
			mcp.Description("Arguments to pass to the prompt (as JSON object with string values)"),
		),
	)
	m.mcpServer.AddTool(getPromptTool, m.handleGetPrompt)

	// Reason
	reasonTool := mcp.NewTool(toolReason,
		mcp.WithDescription("Run a reasoning strategy against a goal, optionally invoking an upstream tool first"),
		mcp.WithString("goal",
			mcp.Required(),
			mcp.Description("The goal to reason about"),
		),
		mcp.WithString("mode",
			mcp.Description("Reasoning mode: react, tot, reflexion, program, or multi-agent (defaults to react)"),
		),
		mcp.WithString("tool",
			mcp.Description("Optional upstream tool to invoke before reasoning"),
		),
		mcp.WithObject("arguments",
			mcp.Description("Arguments for the upstream tool (as JSON object)"),
		),
		mcp.WithString("feedback",
			mcp.Description("Critique consumed by reflexion mode"),
		),
		mcp.WithNumber("maxIterations",
			mcp.Description("Iteration cap for react and reflexion modes"),
		),
		mcp.WithNumber("maxDepth",
			mcp.Description("Depth cap for tot mode"),
		),
		mcp.WithNumber("beamWidth",
			mcp.Description("Beam width for tot mode"),
		),
	)
	m.mcpServer.AddTool(reasonTool, m.handleReason)

	// Diagnose
	diagnoseTool := mcp.NewTool(toolDiagnose,
		mcp.WithDescription("Probe the connected MCP server for anomalies and compose a diagnostic report"),
	)
	m.mcpServer.AddTool(diagnoseTool, m.handleDiagnose)
}
