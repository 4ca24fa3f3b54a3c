package reasoning

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// planAnsweringTool answers the primary tool immediately and reports done
// on the second plan step.
func planAnsweringTool(ctx context.Context, tool string, input map[string]any) (any, error) {
	if tool != planTool {
		return map[string]any{"tool": tool, "ok": true}, nil
	}
	step, _ := input["step"].(int)
	if step >= 1 {
		return map[string]any{"done": true, "value": "final answer: listings verified"}, nil
	}
	return map[string]any{"done": false}, nil
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "", want: ModeReact},
		{input: "react", want: ModeReact},
		{input: "tot", want: ModeTot},
		{input: "reflexion", want: ModeReflexion},
		{input: "program", want: ModeProgram},
		{input: "multi-agent", want: ModeMultiAgent},
		{input: "chain-of-thought", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("mode "+tt.input, func(t *testing.T) {
			mode, err := ParseMode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode failed: %v", err)
			}
			if mode != tt.want {
				t.Errorf("mode = %q, expected %q", mode, tt.want)
			}
		})
	}
}

func TestExecuteWithReasoningReact(t *testing.T) {
	engine := NewEngine(EngineConfig{Tools: planAnsweringTool})

	outcome, err := engine.ExecuteWithReasoning(context.Background(), "list_tools", nil, ModeReact, Options{MaxIterations: 5})
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}

	react, ok := outcome.(ReactOutcome)
	if !ok {
		t.Fatalf("expected ReactOutcome, got %T", outcome)
	}
	if !react.Success {
		t.Fatal("expected a successful run")
	}
	if react.FinalAnswer != "listings verified" {
		t.Errorf("final answer = %q", react.FinalAnswer)
	}
	if react.SessionID == "" {
		t.Error("expected a session id")
	}
	if len(react.Graph) == 0 {
		t.Error("expected a reasoning graph")
	}
	if c := outcome.Confidence(); c <= 0 || c > 1 {
		t.Errorf("confidence %v out of range", c)
	}

	result, ok := react.Result.(map[string]any)
	if !ok || result["tool"] != "list_tools" {
		t.Errorf("expected primary tool result, got %v", react.Result)
	}
}

func TestExecuteWithReasoningReactToolFailureInOutcome(t *testing.T) {
	tool := func(ctx context.Context, tool string, input map[string]any) (any, error) {
		if tool == planTool {
			return map[string]any{"done": true, "value": "final answer: tool is broken"}, nil
		}
		return nil, errors.New("boom")
	}

	engine := NewEngine(EngineConfig{Tools: tool})
	outcome, err := engine.ExecuteWithReasoning(context.Background(), "broken_tool", nil, ModeReact, Options{})
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}

	react := outcome.(ReactOutcome)
	result, ok := react.Result.(map[string]any)
	if !ok || result["error"] != "boom" {
		t.Errorf("expected structured tool error in the outcome, got %v", react.Result)
	}
}

func TestExecuteWithReasoningTot(t *testing.T) {
	propose := func(ctx context.Context, content string) ([]string, error) {
		switch content {
		case "root":
			return []string{"branch A", "branch B"}, nil
		case "branch A":
			return []string{"final answer: done"}, nil
		default:
			return nil, nil
		}
	}
	score := func(ctx context.Context, idea string) (float64, error) {
		if strings.Contains(strings.ToLower(idea), "final answer") {
			return 0.9, nil
		}
		return 0.4, nil
	}

	engine := NewEngine(EngineConfig{Propose: propose, Score: score})
	outcome, err := engine.ExecuteWithReasoning(context.Background(), "", nil, ModeTot, Options{Goal: "root", MaxDepth: 3, BeamWidth: 2})
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}

	tot, ok := outcome.(TotOutcome)
	if !ok {
		t.Fatalf("expected TotOutcome, got %T", outcome)
	}

	want := []string{"root", "branch A", "final answer: done"}
	if len(tot.ThoughtPath) != len(want) {
		t.Fatalf("expected path of %d nodes, got %d", len(want), len(tot.ThoughtPath))
	}
	for i, content := range want {
		if tot.ThoughtPath[i].Content != content {
			t.Errorf("thoughtPath[%d] = %q, expected %q", i, tot.ThoughtPath[i].Content, content)
		}
	}
	if outcome.Confidence() <= 0.5 {
		t.Errorf("expected confidence > 0.5, got %v", outcome.Confidence())
	}
}

func TestExecuteWithReasoningReflexion(t *testing.T) {
	store := NewMemoryEpisodeStore()
	engine := NewEngine(EngineConfig{Tools: neverDoneTool, Memory: store})

	outcome, err := engine.ExecuteWithReasoning(context.Background(), "", nil, ModeReflexion, Options{
		Goal:          "probe",
		MaxIterations: 2,
		Feedback:      "Needs more acceptance criteria coverage",
	})
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}

	reflexion, ok := outcome.(ReflexionOutcome)
	if !ok {
		t.Fatalf("expected ReflexionOutcome, got %T", outcome)
	}
	if !strings.Contains(reflexion.Reflection, "acceptance criteria") {
		t.Errorf("reflection %q missing feedback text", reflexion.Reflection)
	}
	last := reflexion.Path[len(reflexion.Path)-1]
	if !strings.Contains(last.Thought, "final answer") {
		t.Errorf("improved attempt must end in a final answer, got %q", last.Thought)
	}
	if store.Len() != 1 {
		t.Errorf("expected the episode to be persisted, store has %d", store.Len())
	}
}

func TestExecuteWithReasoningProgram(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	outcome, err := engine.ExecuteWithReasoning(context.Background(), "", nil, ModeProgram, Options{Goal: "Compute sum of 2 and 3"})
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}

	program, ok := outcome.(ProgramOutcome)
	if !ok {
		t.Fatalf("expected ProgramOutcome, got %T", outcome)
	}
	if program.Program.Result != 5 {
		t.Errorf("result = %v, expected 5", program.Program.Result)
	}
}

func TestExecuteWithReasoningProgramTimeoutIsRaised(t *testing.T) {
	engine := NewEngine(EngineConfig{})

	_, err := engine.ExecuteWithReasoning(context.Background(), "", nil, ModeProgram, Options{
		Goal:              "Compute sum of 2 and 3",
		ProgramTimeout:    0,
		ProgramTimeoutSet: true,
	})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !errors.Is(err, ErrProgramTimeout) {
		t.Errorf("expected ErrProgramTimeout, got %v", err)
	}
}

type fakeOrchestrator struct {
	agents []Agent
}

func (f *fakeOrchestrator) Deliberate(ctx context.Context, agents []Agent, fn DeliberateFunc) (Consensus, error) {
	f.agents = agents
	var participants []string
	for _, agent := range agents[:2] {
		d, err := fn(ctx, agent)
		if err != nil {
			return Consensus{}, err
		}
		participants = append(participants, d.AgentID)
	}
	return Consensus{Outcome: "listings verified", Participants: participants}, nil
}

func TestExecuteWithReasoningMultiAgent(t *testing.T) {
	deliberate := func(ctx context.Context, agent Agent) (Deliberation, error) {
		return Deliberation{AgentID: agent.ID, Proposal: "listings verified", Confidence: 0.8}, nil
	}

	recorder := &eventRecorder{}
	events := NewEmitter(16, recorder.observe)
	orchestrator := &fakeOrchestrator{}
	engine := NewEngine(EngineConfig{
		Events:       events,
		Orchestrator: orchestrator,
		Deliberate:   deliberate,
	})

	agents := []Agent{
		{ID: "planner", Role: "planner"},
		{ID: "critic", Role: "critic"},
		{ID: "skeptic", Role: "skeptic"},
	}
	outcome, err := engine.ExecuteWithReasoning(context.Background(), "", nil, ModeMultiAgent, Options{Goal: "probe", Agents: agents})
	events.Close()
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}

	consensus, ok := outcome.(ConsensusOutcome)
	if !ok {
		t.Fatalf("expected ConsensusOutcome, got %T", outcome)
	}
	if consensus.Consensus.Outcome != "listings verified" {
		t.Errorf("unexpected outcome %q", consensus.Consensus.Outcome)
	}
	// 2 of 3 agents backed the outcome.
	if got := outcome.Confidence(); got < 0.66 || got > 0.67 {
		t.Errorf("confidence = %v, expected the agreement ratio 2/3", got)
	}

	var sawConsensusEvent bool
	for _, ev := range recorder.events {
		if ev.Name == EventConsensus && ev.Payload["consensus"] == "listings verified" {
			sawConsensusEvent = true
		}
	}
	if !sawConsensusEvent {
		t.Error("expected a reasoning.consensus event")
	}
}

func TestExecuteWithReasoningMissingCollaborators(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		opts Options
	}{
		{name: "react without tools", mode: ModeReact},
		{name: "tot without callbacks", mode: ModeTot},
		{name: "multi-agent without orchestrator", mode: ModeMultiAgent, opts: Options{Agents: []Agent{{ID: "a"}}}},
		{name: "multi-agent without agents", mode: ModeMultiAgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(EngineConfig{})
			if _, err := engine.ExecuteWithReasoning(context.Background(), "", nil, tt.mode, tt.opts); err == nil {
				t.Fatal("expected an error for missing collaborators")
			}
		})
	}
}

func TestReactConfidenceFloorsOnFailure(t *testing.T) {
	engine := NewEngine(EngineConfig{Tools: neverDoneTool})
	outcome, err := engine.ExecuteWithReasoning(context.Background(), "", nil, ModeReact, Options{Goal: "probe", MaxIterations: 1})
	if err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}
	react := outcome.(ReactOutcome)
	if react.Success {
		t.Fatal("expected failure")
	}
	if react.Score != failedReactConfidence {
		t.Errorf("confidence = %v, expected the failure floor %v", react.Score, failedReactConfidence)
	}
}

func TestProgramDefaultBudgetIsGenerous(t *testing.T) {
	start := time.Now()
	engine := NewEngine(EngineConfig{})
	if _, err := engine.ExecuteWithReasoning(context.Background(), "", nil, ModeProgram, Options{Goal: "sum 1 2 3"}); err != nil {
		t.Fatalf("ExecuteWithReasoning failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > defaultProgramTimeout {
		t.Errorf("trivial program took %v, longer than the default budget", elapsed)
	}
}
