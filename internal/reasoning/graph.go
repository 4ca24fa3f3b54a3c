package reasoning

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
)

// NodeType classifies a reasoning-graph node.
type NodeType string

const (
	NodeQuestion    NodeType = "question"
	NodeToolCall    NodeType = "tool_call"
	NodeObservation NodeType = "observation"
	NodeConclusion  NodeType = "conclusion"
)

// Per-type confidence assigned at build time.
const (
	questionConfidence    = 0.6
	toolCallConfidence    = 0.55
	observationConfidence = 0.65
	conclusionConfidence  = 0.9
)

// observationLimit caps the serialized observation content length.
const observationLimit = 120

// ReasoningNode is one node of the explainability graph derived from a
// ReAct path. Edges are forward-only references in traversal order.
type ReasoningNode struct {
	ID         string   `json:"id"`
	Type       NodeType `json:"type"`
	Content    string   `json:"content"`
	Confidence float64  `json:"confidence"`
	Edges      []string `json:"edges"`
}

// GraphTracker builds and analyzes reasoning graphs. Each Build call is
// self-contained; the tracker holds no state across calls.
type GraphTracker struct{}

// Build converts a step sequence into a chained node graph. Each step
// contributes a question node, then tool_call/observation nodes when the
// step carries them, and a conclusion node when the thought holds a final
// answer marker. Missing fields skip their node type; there is no
// validation failure path.
func (GraphTracker) Build(steps []ReasoningStep) []ReasoningNode {
	var nodes []ReasoningNode
	tail := -1

	link := func(next int) {
		if tail >= 0 {
			nodes[tail].Edges = append(nodes[tail].Edges, nodes[next].ID)
		}
		tail = next
	}
	add := func(t NodeType, content string, confidence float64) {
		nodes = append(nodes, ReasoningNode{
			ID:         uuid.NewString(),
			Type:       t,
			Content:    content,
			Confidence: confidence,
			Edges:      []string{},
		})
		link(len(nodes) - 1)
	}

	for _, step := range steps {
		add(NodeQuestion, step.Thought, questionConfidence)
		if step.Action != nil {
			add(NodeToolCall, step.Action.Tool, toolCallConfidence)
		}
		if step.Observation != nil {
			add(NodeObservation, serializeObservation(step.Observation), observationConfidence)
		}
		if finalAnswerPattern.MatchString(step.Thought) {
			add(NodeConclusion, stripFinalAnswerMarker(step.Thought), conclusionConfidence)
		}
	}

	return nodes
}

// serializeObservation renders an observation for node content: nil maps
// to "unknown", primitives are stringified, everything else is
// JSON-serialized and truncated. Strings that look like damaged JSON are
// repaired first, since tool output frequently arrives that way.
func serializeObservation(obs any) string {
	switch v := obs.(type) {
	case nil:
		return "unknown"
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			if !json.Valid([]byte(trimmed)) {
				if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil {
					return truncate(repaired, observationLimit)
				}
			}
		}
		return truncate(v, observationLimit)
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "unserializable"
		}
		return truncate(string(data), observationLimit)
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// HasCycles reports whether the edge lists contain a cycle. The traversal
// is depth-first with an explicit stack so pathologically long chains
// cannot exhaust the call stack; shared acyclic fan-in terminates.
func (GraphTracker) HasCycles(nodes []ReasoningNode) bool {
	index := indexByID(nodes)

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]int, len(nodes))

	type frame struct {
		node int
		edge int
	}

	for start := range nodes {
		if state[start] != unvisited {
			continue
		}
		state[start] = visiting
		stack := []frame{{node: start}}

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			node := nodes[f.node]

			if f.edge < len(node.Edges) {
				target, ok := index[node.Edges[f.edge]]
				f.edge++
				if !ok {
					continue
				}
				switch state[target] {
				case visiting:
					return true
				case unvisited:
					state[target] = visiting
					stack = append(stack, frame{node: target})
				}
				continue
			}

			state[f.node] = visited
			stack = stack[:len(stack)-1]
		}
	}

	return false
}

// BestPath enumerates every root-to-leaf path and returns the id sequence
// with the strictly greatest total confidence; the first such path wins
// ties. Roots are nodes with zero in-degree; the result is empty when
// there are none. Edges back into the current path are skipped so a
// malformed cyclic input still terminates.
func (GraphTracker) BestPath(nodes []ReasoningNode) []string {
	index := indexByID(nodes)

	indegree := make([]int, len(nodes))
	for _, node := range nodes {
		for _, edge := range node.Edges {
			if target, ok := index[edge]; ok {
				indegree[target]++
			}
		}
	}

	type frame struct {
		node int
		edge int
	}

	var best []string
	bestScore := math.Inf(-1)

	for root := range nodes {
		if indegree[root] != 0 {
			continue
		}

		stack := []frame{{node: root}}
		onPath := make([]bool, len(nodes))
		onPath[root] = true
		sum := nodes[root].Confidence

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			node := nodes[f.node]

			if f.edge == 0 && len(node.Edges) == 0 && sum > bestScore {
				bestScore = sum
				best = make([]string, len(stack))
				for i, fr := range stack {
					best[i] = nodes[fr.node].ID
				}
			}

			if f.edge < len(node.Edges) {
				target, ok := index[node.Edges[f.edge]]
				f.edge++
				if !ok || onPath[target] {
					continue
				}
				onPath[target] = true
				sum += nodes[target].Confidence
				stack = append(stack, frame{node: target})
				continue
			}

			onPath[f.node] = false
			sum -= nodes[f.node].Confidence
			stack = stack[:len(stack)-1]
		}
	}

	return best
}

func indexByID(nodes []ReasoningNode) map[string]int {
	index := make(map[string]int, len(nodes))
	for i, node := range nodes {
		index[node.ID] = i
	}
	return index
}
