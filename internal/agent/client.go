package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Client represents an MCP agent client
type Client struct {
	endpoint           string
	transport          string
	logger             *Logger
	client             client.MCPClient
	toolCache          []mcp.Tool
	resourceCache      []mcp.Resource
	promptCache        []mcp.Prompt
	mu                 sync.RWMutex
	notificationChan   chan mcp.JSONRPCNotification
	serverCapabilities *mcp.ServerCapabilities
	version            string
}

// ClientConfig holds configuration for creating a new Client
type ClientConfig struct {
	Endpoint  string
	Transport string
	Logger    *Logger
	Version   string
}

// NewClient creates a new agent client from a configuration
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		endpoint:         cfg.Endpoint,
		transport:        cfg.Transport,
		logger:           cfg.Logger,
		toolCache:        []mcp.Tool{},
		resourceCache:    []mcp.Resource{},
		promptCache:      []mcp.Prompt{},
		notificationChan: make(chan mcp.JSONRPCNotification, 10),
		version:          cfg.Version,
	}
}

// Run executes the agent workflow
func (c *Client) Run(ctx context.Context) error {
	return c.connectAndInitialize(ctx)
}

// Reconnect tears the transport down and re-runs the connect sequence.
func (c *Client) Reconnect(ctx context.Context) error {
	c.logger.Info("Attempting to reconnect to MCP server...")
	if c.client != nil {
		c.client.Close()
	}
	return c.connectAndInitialize(ctx)
}

func (c *Client) connectAndInitialize(ctx context.Context) error {
	c.logger.Info("Connecting to MCP server at %s using %s transport...", c.endpoint, c.transport)

	mcpClient, err := client.NewStreamableHttpClient(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to create streamable HTTP client: %w", err)
	}
	c.client = mcpClient

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start client: %w", err)
	}

	mcpClient.OnNotification(func(notification mcp.JSONRPCNotification) {
		select {
		case c.notificationChan <- notification:
		case <-ctx.Done():
		}
	})

	if err := c.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	// List capabilities conditionally based on what the server supports
	if c.ServerSupportsTools() {
		if err := c.listTools(ctx, true); err != nil {
			return fmt.Errorf("initial tool listing failed: %w", err)
		}
	} else {
		c.logger.Info("Server does not support tools capability")
	}

	if c.ServerSupportsResources() {
		if err := c.listResources(ctx, true); err != nil {
			return fmt.Errorf("initial resource listing failed: %w", err)
		}
	} else {
		c.logger.Info("Server does not support resources capability")
	}

	if c.ServerSupportsPrompts() {
		if err := c.listPrompts(ctx, true); err != nil {
			return fmt.Errorf("initial prompt listing failed: %w", err)
		}
	} else {
		c.logger.Info("Server does not support prompts capability")
	}

	return nil
}

// Listen blocks on the notification channel until the context ends.
func (c *Client) Listen(ctx context.Context) error {
	c.logger.Info("Waiting for notifications (press Ctrl+C to exit)...")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Shutting down...")
			return nil

		case notification := <-c.notificationChan:
			if err := c.handleNotification(ctx, notification); err != nil {
				c.logger.Error("Failed to handle notification: %v", err)
			}
		}
	}
}

// initialize performs the MCP protocol handshake
func (c *Client) initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "mcp-reason-agent",
				Version: c.version,
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	c.logger.Request("initialize", req.Params)

	result, err := c.client.Initialize(ctx, req)
	if err != nil {
		c.logger.Error("Initialize failed: %v", err)
		return err
	}

	c.logger.Response("initialize", result)

	c.mu.Lock()
	c.serverCapabilities = &result.Capabilities
	c.mu.Unlock()

	return nil
}

// listTools refreshes the tool cache and reports differences after the
// initial listing.
func (c *Client) listTools(ctx context.Context, initial bool) error {
	req := mcp.ListToolsRequest{}
	c.logger.Request("tools/list", req.Params)

	result, err := c.client.ListTools(ctx, req)
	if err != nil {
		c.logger.Error("ListTools failed: %v", err)
		return err
	}
	c.logger.Response("tools/list", result)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}

	c.mu.Lock()
	old := c.toolCache
	c.toolCache = result.Tools
	c.mu.Unlock()

	if !initial {
		oldNames := make([]string, len(old))
		for i, tool := range old {
			oldNames[i] = tool.Name
		}
		c.showDiff("Tool", oldNames, names)
	}
	return nil
}

// listResources refreshes the resource cache.
func (c *Client) listResources(ctx context.Context, initial bool) error {
	req := mcp.ListResourcesRequest{}
	c.logger.Request("resources/list", req.Params)

	result, err := c.client.ListResources(ctx, req)
	if err != nil {
		c.logger.Error("ListResources failed: %v", err)
		return err
	}
	c.logger.Response("resources/list", result)

	uris := make([]string, len(result.Resources))
	for i, resource := range result.Resources {
		uris[i] = resource.URI
	}

	c.mu.Lock()
	old := c.resourceCache
	c.resourceCache = result.Resources
	c.mu.Unlock()

	if !initial {
		oldURIs := make([]string, len(old))
		for i, resource := range old {
			oldURIs[i] = resource.URI
		}
		c.showDiff("Resource", oldURIs, uris)
	}
	return nil
}

// listPrompts refreshes the prompt cache.
func (c *Client) listPrompts(ctx context.Context, initial bool) error {
	req := mcp.ListPromptsRequest{}
	c.logger.Request("prompts/list", req.Params)

	result, err := c.client.ListPrompts(ctx, req)
	if err != nil {
		c.logger.Error("ListPrompts failed: %v", err)
		return err
	}
	c.logger.Response("prompts/list", result)

	names := make([]string, len(result.Prompts))
	for i, prompt := range result.Prompts {
		names[i] = prompt.Name
	}

	c.mu.Lock()
	old := c.promptCache
	c.promptCache = result.Prompts
	c.mu.Unlock()

	if !initial {
		oldNames := make([]string, len(old))
		for i, prompt := range old {
			oldNames[i] = prompt.Name
		}
		c.showDiff("Prompt", oldNames, names)
	}
	return nil
}

// handleNotification processes incoming notifications
func (c *Client) handleNotification(ctx context.Context, notification mcp.JSONRPCNotification) error {
	c.logger.Notification(notification.Method, notification.Params)

	switch notification.Method {
	case notificationToolsListChanged:
		if c.ServerSupportsTools() {
			return c.listTools(ctx, false)
		}

	case notificationResourcesListChanged:
		if c.ServerSupportsResources() {
			return c.listResources(ctx, false)
		}

	case notificationPromptsListChanged:
		if c.ServerSupportsPrompts() {
			return c.listPrompts(ctx, false)
		}

	default:
		// Unknown notification type
	}

	return nil
}

// showDiff displays additions and removals between two name lists.
func (c *Client) showDiff(kind string, old, current []string) {
	oldSet := make(map[string]bool, len(old))
	for _, name := range old {
		oldSet[name] = true
	}
	currentSet := make(map[string]bool, len(current))
	for _, name := range current {
		currentSet[name] = true
	}

	var added, removed, unchanged []string
	for _, name := range current {
		if oldSet[name] {
			unchanged = append(unchanged, name)
		} else {
			added = append(added, name)
		}
	}
	for _, name := range old {
		if !currentSet[name] {
			removed = append(removed, name)
		}
	}

	if len(added) == 0 && len(removed) == 0 {
		c.logger.Info("No %s changes detected", strings.ToLower(kind))
		return
	}

	c.logger.Info("%s changes detected:", kind)
	for _, name := range unchanged {
		c.logger.Success("  ✓ Unchanged: %s", name)
	}
	for _, name := range added {
		c.logger.Success("  + Added: %s", name)
	}
	for _, name := range removed {
		c.logger.Error("  - Removed: %s", name)
	}
}

// PrettyJSON pretty-prints JSON for logging
func PrettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// Helper methods to check server capabilities
func (c *Client) ServerSupportsTools() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCapabilities != nil && c.serverCapabilities.Tools != nil
}

func (c *Client) ServerSupportsResources() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCapabilities != nil && c.serverCapabilities.Resources != nil
}

func (c *Client) ServerSupportsPrompts() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCapabilities != nil && c.serverCapabilities.Prompts != nil
}

// Tools returns a copy of the cached tool list.
func (c *Client) Tools() []mcp.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tools := make([]mcp.Tool, len(c.toolCache))
	copy(tools, c.toolCache)
	return tools
}

// Resources returns a copy of the cached resource list.
func (c *Client) Resources() []mcp.Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resources := make([]mcp.Resource, len(c.resourceCache))
	copy(resources, c.resourceCache)
	return resources
}

// Prompts returns a copy of the cached prompt list.
func (c *Client) Prompts() []mcp.Prompt {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prompts := make([]mcp.Prompt, len(c.promptCache))
	copy(prompts, c.promptCache)
	return prompts
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// RefreshListings re-runs every supported listing and reports how long the
// round trip took.
func (c *Client) RefreshListings(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if c.ServerSupportsTools() {
		if err := c.listTools(ctx, true); err != nil {
			return time.Since(start), err
		}
	}
	if c.ServerSupportsResources() {
		if err := c.listResources(ctx, true); err != nil {
			return time.Since(start), err
		}
	}
	if c.ServerSupportsPrompts() {
		if err := c.listPrompts(ctx, true); err != nil {
			return time.Since(start), err
		}
	}
	return time.Since(start), nil
}

func shouldReconnect(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation can happen on disconnect
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "transport is closing") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "unexpected eof")
}
