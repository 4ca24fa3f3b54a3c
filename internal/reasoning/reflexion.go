package reasoning

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// ReflexionEpisode records one corrective pass: the failed attempt, the
// critique it received, the composed reflection, and the rewritten attempt.
type ReflexionEpisode struct {
	Attempt         []ReasoningStep `json:"attempt"`
	Feedback        string          `json:"feedback"`
	Reflection      string          `json:"reflection,omitempty"`
	ImprovedAttempt []ReasoningStep `json:"improvedAttempt,omitempty"`
}

// Pattern is a retrieved slice of reflexion history.
type Pattern struct {
	Reflection  string  `json:"reflection,omitempty"`
	SuccessRate float64 `json:"successRate"`
}

// EpisodeStore is the external memory collaborator. Reflexion history is
// consumed through it, never reimplemented here.
type EpisodeStore interface {
	StoreEpisode(ctx context.Context, episode ReflexionEpisode) error
	RetrievePatterns(ctx context.Context, query string) ([]Pattern, error)
}

const (
	reflectionPrefix     = "Reflection: "
	noFeedbackReflection = "Reflection: no feedback provided"
)

// ReflexionEngine rewrites a failed attempt using feedback. A nil memory
// skips persistence.
type ReflexionEngine struct {
	memory EpisodeStore
}

// NewReflexionEngine builds an engine around an optional episode store.
func NewReflexionEngine(memory EpisodeStore) *ReflexionEngine {
	return &ReflexionEngine{memory: memory}
}

// Improve composes a reflection from feedback, rewrites the attempt so its
// last thought carries the reflection as a final answer, and persists the
// episode when a store is configured. Empty feedback is not an error; it
// degrades to a sentinel reflection.
func (e *ReflexionEngine) Improve(ctx context.Context, attempt []ReasoningStep, feedback string) (ReflexionEpisode, error) {
	reflection := noFeedbackReflection
	if trimmed := strings.TrimSpace(feedback); trimmed != "" {
		reflection = reflectionPrefix + lowerFirst(trimmed)
	}

	answer := strings.TrimSpace(strings.TrimPrefix(reflection, strings.TrimSpace(reflectionPrefix)))
	finalThought := "final answer: " + answer

	var improved []ReasoningStep
	if len(attempt) == 0 {
		improved = []ReasoningStep{{Thought: finalThought, Trace: []string{}}}
	} else {
		improved = make([]ReasoningStep, len(attempt))
		copy(improved, attempt)
		for i := 0; i < len(improved)-1; i++ {
			improved[i].Thought += " (revisited)"
		}
		improved[len(improved)-1].Thought = finalThought
	}

	episode := ReflexionEpisode{
		Attempt:         attempt,
		Feedback:        feedback,
		Reflection:      reflection,
		ImprovedAttempt: improved,
	}

	if e.memory != nil {
		if err := e.memory.StoreEpisode(ctx, episode); err != nil {
			return episode, fmt.Errorf("failed to store reflexion episode: %w", err)
		}
	}
	return episode, nil
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// MemoryEpisodeStore is an in-memory EpisodeStore for the REPL and tests.
type MemoryEpisodeStore struct {
	mu       sync.RWMutex
	episodes []ReflexionEpisode
}

// NewMemoryEpisodeStore returns an empty in-memory store.
func NewMemoryEpisodeStore() *MemoryEpisodeStore {
	return &MemoryEpisodeStore{}
}

// StoreEpisode appends the episode.
func (s *MemoryEpisodeStore) StoreEpisode(_ context.Context, episode ReflexionEpisode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes = append(s.episodes, episode)
	return nil
}

// RetrievePatterns returns one pattern per stored episode whose feedback or
// reflection contains the query (case-insensitive). An episode counts as
// successful when it produced an improved attempt.
func (s *MemoryEpisodeStore) RetrievePatterns(_ context.Context, query string) ([]Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var patterns []Pattern
	for _, ep := range s.episodes {
		if needle != "" &&
			!strings.Contains(strings.ToLower(ep.Feedback), needle) &&
			!strings.Contains(strings.ToLower(ep.Reflection), needle) {
			continue
		}
		rate := 0.0
		if len(ep.ImprovedAttempt) > 0 {
			rate = 1.0
		}
		patterns = append(patterns, Pattern{Reflection: ep.Reflection, SuccessRate: rate})
	}
	return patterns, nil
}

// Len reports how many episodes are stored.
func (s *MemoryEpisodeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.episodes)
}
