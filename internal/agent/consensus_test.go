package agent

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/giantswarm/mcp-reason/internal/reasoning"
)

func panelOf(ids ...string) []reasoning.Agent {
	agents := make([]reasoning.Agent, len(ids))
	for i, id := range ids {
		agents[i] = reasoning.Agent{ID: id, Role: "panelist"}
	}
	return agents
}

// proposalByAgent returns a deliberate callback that answers from a fixed
// table.
func proposalByAgent(table map[string]reasoning.Deliberation) reasoning.DeliberateFunc {
	return func(ctx context.Context, agent reasoning.Agent) (reasoning.Deliberation, error) {
		d := table[agent.ID]
		d.AgentID = agent.ID
		return d, nil
	}
}

func TestPanelMajorityVote(t *testing.T) {
	deliberate := proposalByAgent(map[string]reasoning.Deliberation{
		"a": {Proposal: "ship it", Confidence: 0.9},
		"b": {Proposal: "ship it", Confidence: 0.7},
		"c": {Proposal: "hold", Confidence: 0.95},
	})

	consensus, err := NewPanelOrchestrator().Deliberate(context.Background(), panelOf("a", "b", "c"), deliberate)
	if err != nil {
		t.Fatalf("Deliberate failed: %v", err)
	}

	if consensus.Outcome != "ship it" {
		t.Errorf("outcome = %q, expected the majority proposal", consensus.Outcome)
	}

	supporters := append([]string(nil), consensus.Participants...)
	sort.Strings(supporters)
	if len(supporters) != 2 || supporters[0] != "a" || supporters[1] != "b" {
		t.Errorf("participants = %v, expected the two supporters of the winner", consensus.Participants)
	}
}

func TestPanelTieBreaksByMeanConfidence(t *testing.T) {
	deliberate := proposalByAgent(map[string]reasoning.Deliberation{
		"a": {Proposal: "hold", Confidence: 0.5},
		"b": {Proposal: "ship it", Confidence: 0.9},
	})

	consensus, err := NewPanelOrchestrator().Deliberate(context.Background(), panelOf("a", "b"), deliberate)
	if err != nil {
		t.Fatalf("Deliberate failed: %v", err)
	}

	if consensus.Outcome != "ship it" {
		t.Errorf("outcome = %q, expected the higher-confidence side of the tie", consensus.Outcome)
	}
}

func TestPanelTieBreaksByFirstSeen(t *testing.T) {
	deliberate := proposalByAgent(map[string]reasoning.Deliberation{
		"a": {Proposal: "hold", Confidence: 0.8},
		"b": {Proposal: "ship it", Confidence: 0.8},
	})

	consensus, err := NewPanelOrchestrator().Deliberate(context.Background(), panelOf("a", "b"), deliberate)
	if err != nil {
		t.Fatalf("Deliberate failed: %v", err)
	}

	if consensus.Outcome != "hold" {
		t.Errorf("outcome = %q, expected the first-seen proposal on an exact tie", consensus.Outcome)
	}
}

// vetoLowConfidence rejects deliberations below a floor.
type vetoLowConfidence struct {
	floor float64
}

func (v vetoLowConfidence) Validate(ctx context.Context, d reasoning.Deliberation) error {
	if d.Confidence < v.floor {
		return errors.New("confidence below floor")
	}
	return nil
}

func TestPanelValidatorVeto(t *testing.T) {
	deliberate := proposalByAgent(map[string]reasoning.Deliberation{
		"a": {Proposal: "hold", Confidence: 0.2},
		"b": {Proposal: "hold", Confidence: 0.3},
		"c": {Proposal: "ship it", Confidence: 0.9},
	})

	orchestrator := NewPanelOrchestrator(WithValidator(vetoLowConfidence{floor: 0.5}))
	consensus, err := orchestrator.Deliberate(context.Background(), panelOf("a", "b", "c"), deliberate)
	if err != nil {
		t.Fatalf("Deliberate failed: %v", err)
	}

	// The hold majority was vetoed away; only the validated vote counts.
	if consensus.Outcome != "ship it" {
		t.Errorf("outcome = %q, expected the only validated proposal", consensus.Outcome)
	}
	if len(consensus.Participants) != 1 || consensus.Participants[0] != "c" {
		t.Errorf("participants = %v", consensus.Participants)
	}
}

func TestPanelAllVetoedIsAnError(t *testing.T) {
	deliberate := proposalByAgent(map[string]reasoning.Deliberation{
		"a": {Proposal: "hold", Confidence: 0.1},
	})

	orchestrator := NewPanelOrchestrator(WithValidator(vetoLowConfidence{floor: 0.5}))
	if _, err := orchestrator.Deliberate(context.Background(), panelOf("a"), deliberate); err == nil {
		t.Fatal("expected an error when every deliberation is vetoed")
	}
}

func TestPanelAgentFailurePropagates(t *testing.T) {
	deliberate := func(ctx context.Context, agent reasoning.Agent) (reasoning.Deliberation, error) {
		if agent.ID == "b" {
			return reasoning.Deliberation{}, errors.New("model unavailable")
		}
		return reasoning.Deliberation{AgentID: agent.ID, Proposal: "ok", Confidence: 0.8}, nil
	}

	_, err := NewPanelOrchestrator().Deliberate(context.Background(), panelOf("a", "b"), deliberate)
	if err == nil {
		t.Fatal("expected the agent failure to surface")
	}
	if got := err.Error(); !strings.Contains(got, "b") {
		t.Errorf("error %q should name the failing agent", got)
	}
}

func TestPanelRunsAgentsConcurrently(t *testing.T) {
	var mu sync.Mutex
	called := map[string]bool{}

	deliberate := func(ctx context.Context, agent reasoning.Agent) (reasoning.Deliberation, error) {
		mu.Lock()
		called[agent.ID] = true
		mu.Unlock()
		return reasoning.Deliberation{AgentID: agent.ID, Proposal: "ok", Confidence: 0.8}, nil
	}

	if _, err := NewPanelOrchestrator().Deliberate(context.Background(), panelOf("a", "b", "c", "d"), deliberate); err != nil {
		t.Fatalf("Deliberate failed: %v", err)
	}
	if len(called) != 4 {
		t.Errorf("expected all 4 agents consulted, got %d", len(called))
	}
}

func TestPanelRejectsEmptyInputs(t *testing.T) {
	orchestrator := NewPanelOrchestrator()

	if _, err := orchestrator.Deliberate(context.Background(), nil, proposalByAgent(nil)); err == nil {
		t.Error("expected an error for an empty panel")
	}
	if _, err := orchestrator.Deliberate(context.Background(), panelOf("a"), nil); err == nil {
		t.Error("expected an error for a nil deliberate callback")
	}
}
