package reasoning

import (
	"context"
	"fmt"
)

// ToolFunc executes a named tool with the given input. Failures are
// surfaced as structured observations by the ReAct loop.
type ToolFunc func(ctx context.Context, tool string, input map[string]any) (any, error)

const (
	// planTool is the synthetic tool every ReAct step invokes.
	planTool = "reasoning.plan"

	// traceWindow bounds how many prior thoughts a step carries.
	traceWindow = 3

	// abortReason is the reason reported on cooperative cancellation.
	abortReason = "aborted"
)

// ReactExecutor runs the bounded thought/action/observation loop. Each
// iteration invokes the injected tool executor once and checks for
// cancellation before and after the step. The executor is stateless across
// calls and safe to reuse.
type ReactExecutor struct {
	tools         ToolFunc
	events        *Emitter
	maxIterations int
}

// NewReactExecutor builds an executor. maxIterations is clamped to at
// least 1. events may be nil.
func NewReactExecutor(tools ToolFunc, events *Emitter, maxIterations int) *ReactExecutor {
	if maxIterations < 1 {
		maxIterations = 1
	}
	return &ReactExecutor{
		tools:         tools,
		events:        events,
		maxIterations: maxIterations,
	}
}

// Execute runs the loop toward goal. The returned path never exceeds the
// iteration cap. Cancellation is a first-class outcome, not an error: the
// loop stops at the next checkpoint with Success=false.
func (r *ReactExecutor) Execute(ctx context.Context, goal string) ReasoningResult {
	r.events.Emit(EventStarted, map[string]any{"goal": goal})

	result := ReasoningResult{Path: []ReasoningStep{}}

	for i := 0; i < r.maxIterations; i++ {
		if ctx.Err() != nil {
			return r.abort(goal, result)
		}

		step := r.buildStep(goal, i, result.Path)

		obs, err := r.tools(ctx, step.Action.Tool, step.Action.Input)
		if err != nil {
			// Tool failures terminate the run; retry policy belongs to the caller.
			step.Observation = map[string]any{"error": err.Error()}
			result.Path = append(result.Path, step)
			r.events.Emit(EventStep, map[string]any{
				"goal":    goal,
				"index":   i,
				"step":    step,
				"errored": true,
			})
			break
		}

		step.Observation = obs
		result.Path = append(result.Path, step)
		r.events.Emit(EventStep, map[string]any{
			"goal":  goal,
			"index": i,
			"step":  step,
		})

		if answer, ok := extractFinalAnswer(step); ok {
			result.FinalAnswer = answer
			result.Success = true
			break
		}

		if ctx.Err() != nil {
			return r.abort(goal, result)
		}
	}

	completed := map[string]any{
		"goal":       goal,
		"success":    result.Success,
		"iterations": len(result.Path),
	}
	if result.Success {
		completed["finalAnswer"] = result.FinalAnswer
	}
	r.events.Emit(EventCompleted, completed)

	return result
}

// buildStep assembles the synthetic thought, the bounded trace window, and
// the plan action for iteration i.
func (r *ReactExecutor) buildStep(goal string, i int, prior []ReasoningStep) ReasoningStep {
	verb := "plan"
	if i > 0 {
		verb = "reflect"
	}

	var trace []string
	if len(prior) == 0 {
		trace = []string{"goal:" + goal}
	} else {
		start := len(prior) - traceWindow
		if start < 0 {
			start = 0
		}
		for j := start; j < len(prior); j++ {
			trace = append(trace, fmt.Sprintf("%d:%s", j+1, prior[j].Thought))
		}
	}

	priorContext := make([]map[string]any, 0, len(prior))
	for _, p := range prior {
		priorContext = append(priorContext, map[string]any{
			"thought":     p.Thought,
			"observation": p.Observation,
		})
	}

	return ReasoningStep{
		Thought: fmt.Sprintf("%s step %d: %s", verb, i+1, goal),
		Trace:   trace,
		Action: &Action{
			Tool: planTool,
			Input: map[string]any{
				"goal":  goal,
				"step":  i,
				"prior": priorContext,
			},
		},
	}
}

func (r *ReactExecutor) abort(goal string, result ReasoningResult) ReasoningResult {
	result.Success = false
	r.events.Emit(EventAborted, map[string]any{
		"goal":       goal,
		"reason":     abortReason,
		"iterations": len(result.Path),
	})
	r.events.Emit(EventCompleted, map[string]any{
		"goal":       goal,
		"success":    false,
		"iterations": len(result.Path),
	})
	return result
}
