package agent

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-reason/internal/reasoning"
)

func TestLocalPlanner(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]any
		wantDone bool
	}{
		{name: "first step keeps planning", input: map[string]any{"goal": "probe", "step": 0}, wantDone: false},
		{name: "middle step keeps planning", input: map[string]any{"goal": "probe", "step": 1}, wantDone: false},
		{name: "final round concludes", input: map[string]any{"goal": "probe", "step": 2}, wantDone: true},
		{name: "json-decoded float step", input: map[string]any{"goal": "probe", "step": float64(2)}, wantDone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := localPlanner(tt.input)
			done, _ := result["done"].(bool)
			if done != tt.wantDone {
				t.Errorf("done = %v, expected %v", done, tt.wantDone)
			}
			if tt.wantDone {
				value, _ := result["value"].(string)
				if !strings.HasPrefix(value, "final answer:") || !strings.Contains(value, "probe") {
					t.Errorf("conclusion value = %q", value)
				}
			} else {
				if _, ok := result["summary"].(string); !ok {
					t.Errorf("expected a summary on non-final rounds, got %v", result)
				}
			}
		})
	}
}

func TestLocalProposeAndScore(t *testing.T) {
	ctx := context.Background()

	ideas, err := localPropose(ctx, "check the listings")
	if err != nil {
		t.Fatalf("localPropose failed: %v", err)
	}
	if len(ideas) != 2 {
		t.Fatalf("expected 2 refinements, got %d", len(ideas))
	}

	// Terminal thoughts get no children.
	terminal, err := localPropose(ctx, "final answer: done")
	if err != nil {
		t.Fatalf("localPropose failed: %v", err)
	}
	if len(terminal) != 0 {
		t.Errorf("expected no refinements for a terminal thought, got %v", terminal)
	}

	conclusive, _ := localScore(ctx, ideas[1])
	exploratory, _ := localScore(ctx, ideas[0])
	if conclusive <= exploratory {
		t.Errorf("conclusive score %v should beat exploratory %v", conclusive, exploratory)
	}
}

func TestOfflineEngineReact(t *testing.T) {
	engine := NewOfflineEngine(nil, "verify the listings")
	defer engine.Close()

	outcome, err := engine.ExecuteWithReasoning(context.Background(), "", nil, reasoning.ModeReact, reasoning.Options{Goal: "verify the listings"})
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}

	react, ok := outcome.(reasoning.ReactOutcome)
	if !ok {
		t.Fatalf("expected ReactOutcome, got %T", outcome)
	}
	if !react.Success {
		t.Fatal("expected the local planner to conclude within the default budget")
	}
	if !strings.Contains(react.FinalAnswer, "verify the listings") {
		t.Errorf("final answer %q should restate the goal", react.FinalAnswer)
	}
	if len(react.Path) != planRounds {
		t.Errorf("expected %d steps, got %d", planRounds, len(react.Path))
	}
}

func TestOfflineEngineTot(t *testing.T) {
	engine := NewOfflineEngine(nil, "verify the listings")
	defer engine.Close()

	outcome, err := engine.ExecuteWithReasoning(context.Background(), "", nil, reasoning.ModeTot, reasoning.Options{Goal: "verify the listings"})
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}

	tot := outcome.(reasoning.TotOutcome)
	if !tot.Success {
		t.Fatal("expected the local callbacks to find a conclusive thought")
	}
	last := tot.ThoughtPath[len(tot.ThoughtPath)-1]
	if !strings.Contains(strings.ToLower(last.Content), "final answer") {
		t.Errorf("path should end in a conclusive thought, got %q", last.Content)
	}
}

func TestOfflineEngineMultiAgent(t *testing.T) {
	engine := NewOfflineEngine(nil, "verify the listings")
	defer engine.Close()

	outcome, err := engine.ExecuteWithReasoning(context.Background(), "", nil, reasoning.ModeMultiAgent, reasoning.Options{
		Goal:   "verify the listings",
		Agents: DefaultPanel(),
	})
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}

	consensus := outcome.(reasoning.ConsensusOutcome)
	if !strings.Contains(consensus.Consensus.Outcome, "verify the listings") {
		t.Errorf("outcome %q should carry the goal", consensus.Consensus.Outcome)
	}
	// All three panelists agree under the deterministic callback.
	if got := outcome.Confidence(); got != 1 {
		t.Errorf("confidence = %v, expected full agreement", got)
	}
}

func TestEngineClosePerInvocation(t *testing.T) {
	before := runtime.NumGoroutine()

	var buf strings.Builder
	for i := 0; i < 50; i++ {
		logger := NewLoggerWithWriter(false, false, false, &buf)
		engine := NewOfflineEngine(logger, "verify the listings")
		if _, err := engine.ExecuteWithReasoning(context.Background(), "", nil, reasoning.ModeReact, reasoning.Options{Goal: "verify the listings"}); err != nil {
			t.Fatalf("ExecuteWithReasoning failed: %v", err)
		}
		engine.Close()
	}

	// Close waits for the observer to drain, so the completion events must
	// already be in the buffer.
	if !strings.Contains(buf.String(), reasoning.EventCompleted) {
		t.Error("expected completion events to be logged before Close returned")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("goroutines grew from %d to %d across 50 engine builds", before, runtime.NumGoroutine())
}

func TestDefaultPanel(t *testing.T) {
	panel := DefaultPanel()
	if len(panel) != 3 {
		t.Fatalf("expected 3 panelists, got %d", len(panel))
	}

	seen := map[string]bool{}
	for _, agent := range panel {
		if agent.ID == "" || agent.Role == "" {
			t.Errorf("panelist %+v missing id or role", agent)
		}
		if seen[agent.ID] {
			t.Errorf("duplicate panelist id %q", agent.ID)
		}
		seen[agent.ID] = true
	}
}

func TestToolResultText(t *testing.T) {
	tests := []struct {
		name   string
		result *mcp.CallToolResult
		want   any
	}{
		{name: "nil result", result: nil, want: nil},
		{
			name:   "single text block",
			result: mcp.NewToolResultText("hello"),
			want:   "hello",
		},
		{
			name:   "error result wraps the text",
			result: mcp.NewToolResultError("boom"),
			want:   map[string]any{"error": "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toolResultText(tt.result)
			switch want := tt.want.(type) {
			case nil:
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
			case string:
				if got != want {
					t.Errorf("got %v, expected %q", got, want)
				}
			case map[string]any:
				gotMap, ok := got.(map[string]any)
				if !ok || gotMap["error"] != want["error"] {
					t.Errorf("got %v, expected %v", got, want)
				}
			}
		})
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int
	}{
		{name: "int", input: 3, want: 3},
		{name: "json float", input: float64(4), want: 4},
		{name: "nil", input: nil, want: 0},
		{name: "string", input: "5", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := asInt(tt.input); got != tt.want {
				t.Errorf("asInt(%v) = %d, expected %d", tt.input, got, tt.want)
			}
		})
	}
}
