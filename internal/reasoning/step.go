package reasoning

import (
	"fmt"
	"strings"
)

// finalAnswerMarker is the case-insensitive phrase that terminates a
// reasoning run when it appears in a thought or a done observation.
const finalAnswerMarker = "final answer"

// Action is a tool invocation requested by a reasoning step.
type Action struct {
	Tool  string         `json:"tool"`
	Input map[string]any `json:"input"`
}

// ReasoningStep is one thought/action/observation record. Steps are
// append-only; Trace carries a bounded window of prior thoughts for context.
type ReasoningStep struct {
	Thought     string   `json:"thought"`
	Action      *Action  `json:"action,omitempty"`
	Observation any      `json:"observation,omitempty"`
	Trace       []string `json:"trace"`
}

// ReasoningResult is the outcome of one ReAct run. Success is true iff a
// final answer was extracted before the iteration cap or an abort.
type ReasoningResult struct {
	FinalAnswer string          `json:"finalAnswer,omitempty"`
	Path        []ReasoningStep `json:"path"`
	Success     bool            `json:"success"`
}

// stripFinalAnswerMarker removes a leading "final answer" marker from text.
// If a ':' follows the marker, everything after the first ':' is returned;
// otherwise the text after the marker is returned as-is. Text without the
// marker is returned trimmed.
func stripFinalAnswerMarker(text string) string {
	idx := strings.Index(strings.ToLower(text), finalAnswerMarker)
	if idx < 0 {
		return strings.TrimSpace(text)
	}
	rest := text[idx+len(finalAnswerMarker):]
	if colon := strings.Index(rest, ":"); colon >= 0 {
		return strings.TrimSpace(rest[colon+1:])
	}
	return strings.TrimSpace(rest)
}

// finalAnswerFromThought scans a thought for the "final answer" phrase and
// returns the substring after the first ':' following it. A marker without
// a ':' means there is no answer yet.
func finalAnswerFromThought(thought string) (string, bool) {
	idx := strings.Index(strings.ToLower(thought), finalAnswerMarker)
	if idx < 0 {
		return "", false
	}
	rest := thought[idx+len(finalAnswerMarker):]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return "", false
	}
	answer := strings.TrimSpace(rest[colon+1:])
	return answer, answer != ""
}

// finalAnswerFromObservation extracts an answer from an observation object
// that signals done=true via its value field (or summary when value is
// absent).
func finalAnswerFromObservation(obs any) (string, bool) {
	m, ok := obs.(map[string]any)
	if !ok {
		return "", false
	}
	if done, _ := m["done"].(bool); !done {
		return "", false
	}
	v, ok := m["value"]
	if !ok || v == nil {
		v = m["summary"]
	}
	var answer string
	switch value := v.(type) {
	case nil:
		return "", false
	case string:
		answer = stripFinalAnswerMarker(value)
	default:
		answer = strings.TrimSpace(fmt.Sprint(value))
	}
	return answer, answer != ""
}

// extractFinalAnswer applies the observation rule first, then the thought
// scan.
func extractFinalAnswer(step ReasoningStep) (string, bool) {
	if answer, ok := finalAnswerFromObservation(step.Observation); ok {
		return answer, true
	}
	return finalAnswerFromThought(step.Thought)
}

// clamp01 bounds a confidence value to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
