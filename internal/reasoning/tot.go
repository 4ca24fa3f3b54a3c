package reasoning

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// ThoughtStatus tracks the lifecycle of a node during exploration.
type ThoughtStatus string

const (
	ThoughtPending  ThoughtStatus = "pending"
	ThoughtExplored ThoughtStatus = "explored"
	ThoughtSuccess  ThoughtStatus = "success"
	ThoughtFailed   ThoughtStatus = "failed"
)

// ThoughtNode is one candidate thought in the search tree. ParentID is the
// only back-reference; the tree owns all nodes and they do not outlive the
// Explore call that created them (the registry is reset per call).
type ThoughtNode struct {
	ID       string        `json:"id"`
	Content  string        `json:"content"`
	Score    float64       `json:"score"`
	Status   ThoughtStatus `json:"status"`
	ParentID string        `json:"parentId,omitempty"`
	Children []string      `json:"children,omitempty"`
}

// ProposeFunc generates candidate follow-up thoughts for a node's content.
type ProposeFunc func(ctx context.Context, content string) ([]string, error)

// ScoreFunc rates an idea's promise in [0,1].
type ScoreFunc func(ctx context.Context, idea string) (float64, error)

// ExploreConfig bounds the frontier search. Zero values pick defaults;
// BeamWidth is clamped to [1,6] and MaxDepth to [1,10].
type ExploreConfig struct {
	MaxDepth  int
	BeamWidth int
}

const (
	defaultMaxDepth  = 3
	defaultBeamWidth = 2
	maxDepthCeiling  = 10
	beamWidthCeiling = 6

	// successScore promotes a scored idea straight to success.
	successScore = 0.8
)

var finalAnswerPattern = regexp.MustCompile(`(?i)final answer`)

func (c ExploreConfig) withDefaults() ExploreConfig {
	if c.MaxDepth < 1 {
		c.MaxDepth = defaultMaxDepth
	}
	if c.MaxDepth > maxDepthCeiling {
		c.MaxDepth = maxDepthCeiling
	}
	if c.BeamWidth < 1 {
		c.BeamWidth = defaultBeamWidth
	}
	if c.BeamWidth > beamWidthCeiling {
		c.BeamWidth = beamWidthCeiling
	}
	return c
}

// TreeOfThoughts is the beam-pruned breadth-first explorer. It is not safe
// for concurrent Explore calls; one instance serves one search at a time.
type TreeOfThoughts struct {
	propose ProposeFunc
	score   ScoreFunc
	nodes   []*ThoughtNode
	index   map[string]int
}

// NewTreeOfThoughts builds an explorer around the injected callbacks.
func NewTreeOfThoughts(propose ProposeFunc, score ScoreFunc) *TreeOfThoughts {
	return &TreeOfThoughts{
		propose: propose,
		score:   score,
		index:   map[string]int{},
	}
}

type frontierEntry struct {
	id    string
	depth int
}

type scoredIdea struct {
	idea  string
	score float64
	err   error
}

// Explore runs the search from problem and returns the first success node,
// or the root (marked failed when it produced no children) on exhaustion.
// Ideas of one expansion are scored concurrently; frontier entries are
// processed one at a time so ranking stays deterministic.
func (t *TreeOfThoughts) Explore(ctx context.Context, problem string, cfg ExploreConfig) (*ThoughtNode, error) {
	cfg = cfg.withDefaults()
	t.reset()

	root := t.register(problem, "")
	frontier := []frontierEntry{{id: root.ID, depth: 0}}

	for len(frontier) > 0 {
		entry := frontier[0]
		frontier = frontier[1:]

		node := t.Node(entry.id)
		if entry.depth >= cfg.MaxDepth {
			if len(node.Children) == 0 {
				node.Status = ThoughtFailed
			}
			continue
		}

		ideas, err := t.propose(ctx, node.Content)
		if err != nil {
			return nil, fmt.Errorf("propose failed for %q: %w", node.Content, err)
		}
		if len(ideas) == 0 {
			continue
		}

		scored := t.scoreAll(ctx, ideas)
		for _, s := range scored {
			if s.err != nil {
				return nil, fmt.Errorf("score failed for %q: %w", s.idea, s.err)
			}
		}

		// Stable sort keeps proposal order on ties before beam pruning.
		sort.SliceStable(scored, func(a, b int) bool {
			return scored[a].score > scored[b].score
		})
		if len(scored) > cfg.BeamWidth {
			scored = scored[:cfg.BeamWidth]
		}

		node.Status = ThoughtExplored

		var success *ThoughtNode
		for _, s := range scored {
			child := t.register(s.idea, node.ID)
			child.Score = clamp01(s.score)
			node.Children = append(node.Children, child.ID)
			if child.Score >= successScore || finalAnswerPattern.MatchString(child.Content) {
				child.Status = ThoughtSuccess
				if success == nil {
					success = child
				}
			}
		}
		// First success within an expansion wins; siblings stay registered
		// but no further frontier work is enqueued.
		if success != nil {
			return success, nil
		}

		for _, childID := range node.Children {
			child := t.Node(childID)
			if child.Status == ThoughtPending {
				frontier = append(frontier, frontierEntry{id: childID, depth: entry.depth + 1})
			}
		}
	}

	if len(root.Children) == 0 {
		root.Status = ThoughtFailed
	}
	return root, nil
}

// ExtractPath walks parent links from nodeID to the root and returns the
// root-to-node sequence. Unknown ids yield an empty path.
func (t *TreeOfThoughts) ExtractPath(nodeID string) []*ThoughtNode {
	var reversed []*ThoughtNode
	for id := nodeID; id != ""; {
		node := t.Node(id)
		if node == nil {
			return nil
		}
		reversed = append(reversed, node)
		id = node.ParentID
	}

	path := make([]*ThoughtNode, len(reversed))
	for i, node := range reversed {
		path[len(reversed)-1-i] = node
	}
	return path
}

// Node resolves an id in the arena of the current exploration.
func (t *TreeOfThoughts) Node(id string) *ThoughtNode {
	idx, ok := t.index[id]
	if !ok {
		return nil
	}
	return t.nodes[idx]
}

// Nodes returns every node registered by the current exploration, in
// creation order.
func (t *TreeOfThoughts) Nodes() []*ThoughtNode {
	return t.nodes
}

func (t *TreeOfThoughts) reset() {
	t.nodes = nil
	t.index = map[string]int{}
}

// register allocates a node in the dense arena; ids are sequential indices
// so parent and child references resolve without a lookup table rebuild.
func (t *TreeOfThoughts) register(content, parentID string) *ThoughtNode {
	node := &ThoughtNode{
		ID:       fmt.Sprintf("t%d", len(t.nodes)),
		Content:  content,
		Status:   ThoughtPending,
		ParentID: parentID,
	}
	t.index[node.ID] = len(t.nodes)
	t.nodes = append(t.nodes, node)
	return node
}

// scoreAll fans scoring out across goroutines and collects results in
// proposal order.
func (t *TreeOfThoughts) scoreAll(ctx context.Context, ideas []string) []scoredIdea {
	results := make([]scoredIdea, len(ideas))
	var wg sync.WaitGroup
	for i, idea := range ideas {
		wg.Add(1)
		go func(i int, idea string) {
			defer wg.Done()
			score, err := t.score(ctx, idea)
			results[i] = scoredIdea{idea: idea, score: score, err: err}
		}(i, idea)
	}
	wg.Wait()
	return results
}
