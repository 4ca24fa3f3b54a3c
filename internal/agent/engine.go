package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/giantswarm/mcp-reason/internal/reasoning"

	"github.com/mark3labs/mcp-go/mcp"
)

// Number of planning rounds the local planner runs before concluding.
const planRounds = 3

// localPlanner is the deterministic fallback behind the reasoning.plan
// tool. It advances a fixed number of planning rounds and then reports a
// final answer derived from the goal.
func localPlanner(input map[string]any) map[string]any {
	goal, _ := input["goal"].(string)
	step := asInt(input["step"])

	if step >= planRounds-1 {
		return map[string]any{
			"done":  true,
			"value": fmt.Sprintf("final answer: %s (after %d planning steps)", goal, step+1),
		}
	}
	return map[string]any{
		"done":    false,
		"summary": fmt.Sprintf("planned step %d of %s", step+1, goal),
	}
}

// localPropose generates deterministic refinements for Tree-of-Thoughts.
// Terminal thoughts (already carrying a final answer) get no children.
func localPropose(ctx context.Context, content string) ([]string, error) {
	if strings.Contains(strings.ToLower(content), "final answer") {
		return nil, nil
	}
	return []string{
		"examine " + content,
		"final answer: " + content + " resolved",
	}, nil
}

// localScore favors conclusive thoughts over exploratory ones.
func localScore(ctx context.Context, idea string) (float64, error) {
	if strings.Contains(strings.ToLower(idea), "final answer") {
		return 0.9, nil
	}
	return 0.4, nil
}

// localDeliberate returns a deterministic per-agent position on the goal.
func localDeliberate(goal string) reasoning.DeliberateFunc {
	confidenceByRole := map[string]float64{
		"planner": 0.85,
		"critic":  0.75,
		"skeptic": 0.6,
	}
	return func(ctx context.Context, agent reasoning.Agent) (reasoning.Deliberation, error) {
		confidence, ok := confidenceByRole[agent.Role]
		if !ok {
			confidence = 0.7
		}
		return reasoning.Deliberation{
			AgentID:    agent.ID,
			Proposal:   "approve: " + goal,
			Confidence: confidence,
		}, nil
	}
}

// NewOfflineEngine builds a reasoning engine backed entirely by the
// deterministic local callbacks, with events routed to the logger. Used by
// the offline reason subcommand and as the fallback when no MCP server is
// reachable. The caller owns the engine and must Close it to stop the
// event observer.
func NewOfflineEngine(logger *Logger, goal string) *reasoning.Engine {
	tools := func(ctx context.Context, tool string, input map[string]any) (any, error) {
		return localPlanner(input), nil
	}
	return newEngineWithTools(logger, goal, tools)
}

// NewClientEngine builds a reasoning engine whose tool executor forwards
// non-planning tools to the connected MCP server. The planning tool stays
// local so reasoning works against servers that do not expose one. The
// caller owns the engine and must Close it to stop the event observer.
func NewClientEngine(client *Client, logger *Logger, goal string) *reasoning.Engine {
	tools := func(ctx context.Context, tool string, input map[string]any) (any, error) {
		if tool == "reasoning.plan" {
			return localPlanner(input), nil
		}
		result, err := client.CallTool(ctx, tool, input)
		if err != nil {
			return nil, err
		}
		return toolResultText(result), nil
	}
	return newEngineWithTools(logger, goal, tools)
}

func newEngineWithTools(logger *Logger, goal string, tools reasoning.ToolFunc) *reasoning.Engine {
	var events *reasoning.Emitter
	if logger != nil {
		events = reasoning.NewEmitter(64, logger.ReasoningEvent)
	}
	return reasoning.NewEngine(reasoning.EngineConfig{
		Tools:        tools,
		Events:       events,
		Propose:      localPropose,
		Score:        localScore,
		Memory:       reasoning.NewMemoryEpisodeStore(),
		Orchestrator: NewPanelOrchestrator(),
		Deliberate:   localDeliberate(goal),
	})
}

// DefaultPanel is the agent roster used when the caller does not supply
// one.
func DefaultPanel() []reasoning.Agent {
	return []reasoning.Agent{
		{ID: "planner-1", Role: "planner", Capabilities: []string{"decompose", "sequence"}},
		{ID: "critic-1", Role: "critic", Capabilities: []string{"review", "score"}},
		{ID: "skeptic-1", Role: "skeptic", Capabilities: []string{"challenge"}},
	}
}

// toolResultText flattens an MCP tool result into the text payload the
// reasoning layer consumes.
func toolResultText(result *mcp.CallToolResult) any {
	if result == nil {
		return nil
	}
	var parts []string
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if result.IsError {
		return map[string]any{"error": text}
	}
	return text
}

// asInt coerces JSON-decoded numbers (float64) and native ints alike.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
