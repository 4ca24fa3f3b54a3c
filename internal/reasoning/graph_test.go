package reasoning

import (
	"strings"
	"testing"
)

func sampleSteps() []ReasoningStep {
	return []ReasoningStep{
		{
			Thought:     "plan step 1: check tool listings",
			Action:      &Action{Tool: "reasoning.plan", Input: map[string]any{"step": 0}},
			Observation: map[string]any{"tools": 3},
		},
		{
			Thought:     "reflect step 2: final answer: listings are healthy",
			Action:      &Action{Tool: "reasoning.plan", Input: map[string]any{"step": 1}},
			Observation: map[string]any{"done": true},
		},
	}
}

func TestBuildNodeSequence(t *testing.T) {
	var tracker GraphTracker
	nodes := tracker.Build(sampleSteps())

	wantTypes := []NodeType{
		NodeQuestion, NodeToolCall, NodeObservation,
		NodeQuestion, NodeToolCall, NodeObservation, NodeConclusion,
	}
	if len(nodes) != len(wantTypes) {
		t.Fatalf("expected %d nodes, got %d", len(wantTypes), len(nodes))
	}
	for i, want := range wantTypes {
		if nodes[i].Type != want {
			t.Errorf("node %d type = %q, expected %q", i, nodes[i].Type, want)
		}
	}

	// Every node chains to the next; the last has no outgoing edges.
	for i := 0; i < len(nodes)-1; i++ {
		if len(nodes[i].Edges) != 1 || nodes[i].Edges[0] != nodes[i+1].ID {
			t.Errorf("node %d edges = %v, expected link to node %d", i, nodes[i].Edges, i+1)
		}
	}
	if len(nodes[len(nodes)-1].Edges) != 0 {
		t.Errorf("tail node must have no edges, got %v", nodes[len(nodes)-1].Edges)
	}

	conclusion := nodes[len(nodes)-1]
	if conclusion.Content != "listings are healthy" {
		t.Errorf("conclusion content = %q", conclusion.Content)
	}
	if conclusion.Confidence != conclusionConfidence {
		t.Errorf("conclusion confidence = %v", conclusion.Confidence)
	}
}

func TestBuildSkipsMissingFields(t *testing.T) {
	var tracker GraphTracker
	nodes := tracker.Build([]ReasoningStep{{Thought: "bare thought"}})

	if len(nodes) != 1 {
		t.Fatalf("expected only a question node, got %d nodes", len(nodes))
	}
	if nodes[0].Type != NodeQuestion {
		t.Errorf("unexpected type %q", nodes[0].Type)
	}
}

func TestSerializeObservation(t *testing.T) {
	tests := []struct {
		name string
		obs  any
		want string
	}{
		{name: "nil is unknown", obs: nil, want: "unknown"},
		{name: "string passes through", obs: "plain text", want: "plain text"},
		{name: "bool stringified", obs: true, want: "true"},
		{name: "number stringified", obs: 42, want: "42"},
		{name: "map serialized", obs: map[string]any{"a": 1}, want: `{"a":1}`},
		{name: "broken json repaired", obs: `{"a": 1,}`, want: `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serializeObservation(tt.obs); got != tt.want {
				t.Errorf("serializeObservation(%v) = %q, expected %q", tt.obs, got, tt.want)
			}
		})
	}
}

func TestSerializeObservationTruncates(t *testing.T) {
	long := map[string]any{"payload": strings.Repeat("x", 500)}
	got := serializeObservation(long)
	if len([]rune(got)) != observationLimit {
		t.Errorf("expected %d characters, got %d", observationLimit, len([]rune(got)))
	}
}

func TestHasCycles(t *testing.T) {
	var tracker GraphTracker

	t.Run("built graphs are acyclic", func(t *testing.T) {
		nodes := tracker.Build(sampleSteps())
		if tracker.HasCycles(nodes) {
			t.Error("expected no cycles in a sequentially built graph")
		}
	})

	t.Run("back edge is detected", func(t *testing.T) {
		nodes := []ReasoningNode{
			{ID: "a", Edges: []string{"b"}},
			{ID: "b", Edges: []string{"c"}},
			{ID: "c", Edges: []string{"a"}},
		}
		if !tracker.HasCycles(nodes) {
			t.Error("expected cycle to be detected")
		}
	})

	t.Run("shared fan-in terminates without a false positive", func(t *testing.T) {
		nodes := []ReasoningNode{
			{ID: "a", Edges: []string{"b", "c"}},
			{ID: "b", Edges: []string{"d"}},
			{ID: "c", Edges: []string{"d"}},
			{ID: "d", Edges: []string{}},
		}
		if tracker.HasCycles(nodes) {
			t.Error("diamond fan-in is not a cycle")
		}
	})

	t.Run("dangling edges are ignored", func(t *testing.T) {
		nodes := []ReasoningNode{{ID: "a", Edges: []string{"ghost"}}}
		if tracker.HasCycles(nodes) {
			t.Error("dangling edge must not report a cycle")
		}
	})
}

func TestBestPathOnBuiltGraph(t *testing.T) {
	var tracker GraphTracker
	nodes := tracker.Build(sampleSteps())

	path := tracker.BestPath(nodes)
	if len(path) == 0 {
		t.Fatal("expected a non-empty best path")
	}

	index := indexByID(nodes)
	first := nodes[index[path[0]]]
	last := nodes[index[path[len(path)-1]]]
	if first.Type != NodeQuestion {
		t.Errorf("best path starts with %q, expected question", first.Type)
	}
	if last.Type != NodeConclusion {
		t.Errorf("best path ends with %q, expected conclusion", last.Type)
	}
}

func TestBestPathPicksHighestTotal(t *testing.T) {
	var tracker GraphTracker
	nodes := []ReasoningNode{
		{ID: "root", Confidence: 0.5, Edges: []string{"weak", "strong"}},
		{ID: "weak", Confidence: 0.1, Edges: []string{}},
		{ID: "strong", Confidence: 0.9, Edges: []string{}},
	}

	path := tracker.BestPath(nodes)
	want := []string{"root", "strong"}
	if len(path) != len(want) {
		t.Fatalf("expected path %v, got %v", want, path)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, path)
		}
	}
}

func TestBestPathFirstWinsTies(t *testing.T) {
	var tracker GraphTracker
	nodes := []ReasoningNode{
		{ID: "root", Confidence: 0.5, Edges: []string{"left", "right"}},
		{ID: "left", Confidence: 0.4, Edges: []string{}},
		{ID: "right", Confidence: 0.4, Edges: []string{}},
	}

	path := tracker.BestPath(nodes)
	if len(path) != 2 || path[1] != "left" {
		t.Errorf("expected the first equal path to win, got %v", path)
	}
}

func TestBestPathNoRoots(t *testing.T) {
	var tracker GraphTracker
	nodes := []ReasoningNode{
		{ID: "a", Confidence: 0.5, Edges: []string{"b"}},
		{ID: "b", Confidence: 0.5, Edges: []string{"a"}},
	}
	if path := tracker.BestPath(nodes); len(path) != 0 {
		t.Errorf("expected empty path without roots, got %v", path)
	}
}
