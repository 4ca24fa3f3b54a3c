package agent

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// withReconnect runs one MCP call, reconnecting and retrying once when the
// failure looks like a dropped transport.
func withReconnect[T any](c *Client, ctx context.Context, what string, call func() (T, error)) (T, error) {
	const maxRetries = 1
	var result T
	var err error

	for i := 0; i <= maxRetries; i++ {
		result, err = call()
		if err == nil {
			return result, nil
		}

		if shouldReconnect(err) && i < maxRetries {
			c.logger.Error("Connection lost during %s. Attempting to reconnect...", what)
			if reconnErr := c.Reconnect(ctx); reconnErr != nil {
				err = fmt.Errorf("failed to reconnect: %w", reconnErr)
				break // Don't retry if reconnect fails
			}
			c.logger.Info("Reconnected successfully. Retrying %s...", what)
			continue
		}
		// Break on non-reconnectable error or after last retry
		break
	}

	var zero T
	return zero, err
}

// CallTool executes a tool with the given arguments, with reconnection logic.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}

	c.logger.Request("tools/call", req.Params)

	result, err := withReconnect(c, ctx, "tool call", func() (*mcp.CallToolResult, error) {
		return c.client.CallTool(ctx, req)
	})
	if err != nil {
		c.logger.Error("CallTool failed: %v", err)
		return nil, err
	}

	c.logger.Response("tools/call", result)
	return result, nil
}

// GetResource retrieves a resource by URI, with reconnection logic.
func (c *Client) GetResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	req := mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
	c.logger.Request("resources/read", req.Params)

	result, err := withReconnect(c, ctx, "resource fetch", func() (*mcp.ReadResourceResult, error) {
		return c.client.ReadResource(ctx, req)
	})
	if err != nil {
		c.logger.Error("ReadResource failed: %v", err)
		return nil, err
	}

	c.logger.Response("resources/read", result)
	return result, nil
}

// GetPrompt retrieves a prompt with arguments, with reconnection logic.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	req := mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{
			Name:      name,
			Arguments: args,
		},
	}
	c.logger.Request("prompts/get", req.Params)

	result, err := withReconnect(c, ctx, "prompt fetch", func() (*mcp.GetPromptResult, error) {
		return c.client.GetPrompt(ctx, req)
	})
	if err != nil {
		c.logger.Error("GetPrompt failed: %v", err)
		return nil, err
	}

	c.logger.Response("prompts/get", result)
	return result, nil
}
