package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode selects a reasoning strategy.
type Mode string

const (
	ModeReact      Mode = "react"
	ModeTot        Mode = "tot"
	ModeReflexion  Mode = "reflexion"
	ModeProgram    Mode = "program"
	ModeMultiAgent Mode = "multi-agent"
)

// ParseMode validates a mode string. Empty defaults to react.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeReact, nil
	case ModeReact, ModeTot, ModeReflexion, ModeProgram, ModeMultiAgent:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown reasoning mode %q (expected react, tot, reflexion, program, or multi-agent)", s)
	}
}

// Options tune one ExecuteWithReasoning call. Zero values pick strategy
// defaults.
type Options struct {
	// Goal overrides the goal derived from the tool invocation.
	Goal string

	// MaxIterations caps the ReAct loop (clamped to >=1).
	MaxIterations int

	// MaxDepth and BeamWidth bound Tree-of-Thoughts (clamped to sane caps).
	MaxDepth  int
	BeamWidth int

	// Feedback is the critique consumed by reflexion mode.
	Feedback string

	// ProgramTimeout overrides the program-of-thought budget when >=0 and
	// ProgramTimeoutSet is true.
	ProgramTimeout    time.Duration
	ProgramTimeoutSet bool

	// Agents is the panel for multi-agent mode.
	Agents []Agent
}

// EngineConfig wires the engine's collaborators. Tools is required for
// react and reflexion; Propose/Score for tot; Orchestrator/Deliberate for
// multi-agent. Everything else is optional.
type EngineConfig struct {
	Tools        ToolFunc
	Events       *Emitter
	Propose      ProposeFunc
	Score        ScoreFunc
	Memory       EpisodeStore
	Orchestrator MultiAgentOrchestrator
	Deliberate   DeliberateFunc
}

// Engine is the orchestrating use case: it invokes the requested tool,
// runs the selected strategy, and composes a mode-specific Outcome with
// uniform confidence semantics.
type Engine struct {
	tools        ToolFunc
	events       *Emitter
	propose      ProposeFunc
	score        ScoreFunc
	memory       EpisodeStore
	orchestrator MultiAgentOrchestrator
	deliberate   DeliberateFunc
	tracker      GraphTracker
}

// NewEngine builds an engine from its collaborators.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		tools:        cfg.Tools,
		events:       cfg.Events,
		propose:      cfg.Propose,
		score:        cfg.Score,
		memory:       cfg.Memory,
		orchestrator: cfg.Orchestrator,
		deliberate:   cfg.Deliberate,
	}
}

// Close releases the engine's event emitter and waits for the observer to
// drain. Callers that build an engine per invocation must Close it when
// done; safe on an engine built without events.
func (e *Engine) Close() {
	e.events.Close()
}

// Outcome is the uniform projection over per-mode results.
type Outcome interface {
	Mode() Mode
	Confidence() float64
}

// ReactOutcome carries the tool result, the reasoning path, and the
// derived explainability graph.
type ReactOutcome struct {
	SessionID   string          `json:"sessionId"`
	Result      any             `json:"result,omitempty"`
	Path        []ReasoningStep `json:"path"`
	FinalAnswer string          `json:"finalAnswer,omitempty"`
	Graph       []ReasoningNode `json:"reasoningGraph"`
	BestPath    []string        `json:"bestPath,omitempty"`
	Score       float64         `json:"confidence"`
	Success     bool            `json:"success"`
}

func (ReactOutcome) Mode() Mode            { return ModeReact }
func (o ReactOutcome) Confidence() float64 { return o.Score }

// TotOutcome carries the discovered thought path.
type TotOutcome struct {
	SessionID   string         `json:"sessionId"`
	Result      any            `json:"result,omitempty"`
	ThoughtPath []*ThoughtNode `json:"thoughtPath"`
	Score       float64        `json:"confidence"`
	Success     bool           `json:"success"`
}

func (TotOutcome) Mode() Mode            { return ModeTot }
func (o TotOutcome) Confidence() float64 { return o.Score }

// ReflexionOutcome carries the reflection and the rewritten attempt.
type ReflexionOutcome struct {
	SessionID  string          `json:"sessionId"`
	Result     any             `json:"result,omitempty"`
	Reflection string          `json:"reflection"`
	Path       []ReasoningStep `json:"path"`
	Score      float64         `json:"confidence"`
}

func (ReflexionOutcome) Mode() Mode            { return ModeReflexion }
func (o ReflexionOutcome) Confidence() float64 { return o.Score }

// ProgramOutcome carries the symbolic execution trace.
type ProgramOutcome struct {
	SessionID string        `json:"sessionId"`
	Result    any           `json:"result,omitempty"`
	Program   ProgramResult `json:"program"`
	Score     float64       `json:"confidence"`
}

func (ProgramOutcome) Mode() Mode            { return ModeProgram }
func (o ProgramOutcome) Confidence() float64 { return o.Score }

// ConsensusOutcome carries the aggregated multi-agent result.
type ConsensusOutcome struct {
	SessionID string    `json:"sessionId"`
	Result    any       `json:"result,omitempty"`
	Consensus Consensus `json:"consensus"`
	Score     float64   `json:"confidence"`
}

func (ConsensusOutcome) Mode() Mode            { return ModeMultiAgent }
func (o ConsensusOutcome) Confidence() float64 { return o.Score }

// Confidence assigned when a strategy produced no positive evidence.
const (
	failedReactConfidence    = 0.3
	exhaustedTotConfidence   = 0.25
	reflexionConfidence      = 0.7
	programConfidence        = 0.95
	defaultReactMaxIteration = 5
)

// ExecuteWithReasoning invokes toolName with input (when given), runs the
// strategy selected by mode, and composes the outcome. Strategy errors are
// never swallowed: they either become part of the structured outcome (tool
// failures inside ReAct) or are raised with a descriptive message (program
// timeout, missing collaborators), so the caller can tell "no answer
// found" from "execution failed".
func (e *Engine) ExecuteWithReasoning(ctx context.Context, toolName string, input map[string]any, mode Mode, opts Options) (Outcome, error) {
	session := uuid.NewString()
	goal := opts.Goal
	if goal == "" {
		goal = "execute tool " + toolName
	}

	// The primary tool invocation is part of the outcome even when it
	// fails; diagnosing a failing tool is a legitimate reasoning goal.
	var toolResult any
	if toolName != "" && e.tools != nil {
		result, err := e.tools(ctx, toolName, input)
		if err != nil {
			toolResult = map[string]any{"error": err.Error()}
		} else {
			toolResult = result
		}
	}

	switch mode {
	case ModeReact, "":
		return e.runReact(ctx, session, goal, toolResult, opts)
	case ModeTot:
		return e.runTot(ctx, session, goal, toolResult, opts)
	case ModeReflexion:
		return e.runReflexion(ctx, session, goal, toolResult, opts)
	case ModeProgram:
		return e.runProgram(session, goal, toolResult, opts)
	case ModeMultiAgent:
		return e.runMultiAgent(ctx, session, goal, toolResult, opts)
	default:
		return nil, fmt.Errorf("unknown reasoning mode %q", mode)
	}
}

func (e *Engine) runReact(ctx context.Context, session, goal string, toolResult any, opts Options) (Outcome, error) {
	if e.tools == nil {
		return nil, errors.New("react mode requires a tool executor")
	}

	maxIterations := opts.MaxIterations
	if maxIterations < 1 {
		maxIterations = defaultReactMaxIteration
	}

	result := NewReactExecutor(e.tools, e.events, maxIterations).Execute(ctx, goal)
	graph := e.tracker.Build(result.Path)
	best := e.tracker.BestPath(graph)

	confidence := failedReactConfidence
	if result.Success && len(best) > 0 {
		confidence = meanConfidence(graph, best)
	}

	return ReactOutcome{
		SessionID:   session,
		Result:      toolResult,
		Path:        result.Path,
		FinalAnswer: result.FinalAnswer,
		Graph:       graph,
		BestPath:    best,
		Score:       clamp01(confidence),
		Success:     result.Success,
	}, nil
}

func (e *Engine) runTot(ctx context.Context, session, goal string, toolResult any, opts Options) (Outcome, error) {
	if e.propose == nil || e.score == nil {
		return nil, errors.New("tot mode requires propose and score callbacks")
	}

	tree := NewTreeOfThoughts(e.propose, e.score)
	node, err := tree.Explore(ctx, goal, ExploreConfig{
		MaxDepth:  opts.MaxDepth,
		BeamWidth: opts.BeamWidth,
	})
	if err != nil {
		return nil, fmt.Errorf("tree-of-thoughts exploration failed: %w", err)
	}

	success := node.Status == ThoughtSuccess
	confidence := exhaustedTotConfidence
	if success {
		confidence = node.Score
	}

	return TotOutcome{
		SessionID:   session,
		Result:      toolResult,
		ThoughtPath: tree.ExtractPath(node.ID),
		Score:       clamp01(confidence),
		Success:     success,
	}, nil
}

func (e *Engine) runReflexion(ctx context.Context, session, goal string, toolResult any, opts Options) (Outcome, error) {
	if e.tools == nil {
		return nil, errors.New("reflexion mode requires a tool executor")
	}

	maxIterations := opts.MaxIterations
	if maxIterations < 1 {
		maxIterations = defaultReactMaxIteration
	}
	attempt := NewReactExecutor(e.tools, e.events, maxIterations).Execute(ctx, goal)

	episode, err := NewReflexionEngine(e.memory).Improve(ctx, attempt.Path, opts.Feedback)
	if err != nil {
		return nil, fmt.Errorf("reflexion pass failed: %w", err)
	}

	return ReflexionOutcome{
		SessionID:  session,
		Result:     toolResult,
		Reflection: episode.Reflection,
		Path:       episode.ImprovedAttempt,
		Score:      reflexionConfidence,
	}, nil
}

func (e *Engine) runProgram(session, goal string, toolResult any, opts Options) (Outcome, error) {
	var programOpts []ProgramOption
	if opts.ProgramTimeoutSet {
		programOpts = append(programOpts, WithProgramTimeout(opts.ProgramTimeout))
	}

	program, err := NewProgramExecutor(programOpts...).Run(goal)
	if err != nil {
		return nil, fmt.Errorf("program-of-thought failed: %w", err)
	}

	return ProgramOutcome{
		SessionID: session,
		Result:    toolResult,
		Program:   program,
		Score:     programConfidence,
	}, nil
}

func (e *Engine) runMultiAgent(ctx context.Context, session, goal string, toolResult any, opts Options) (Outcome, error) {
	if e.orchestrator == nil || e.deliberate == nil {
		return nil, errors.New("multi-agent mode requires an orchestrator and a deliberate callback")
	}
	if len(opts.Agents) == 0 {
		return nil, errors.New("multi-agent mode requires at least one agent")
	}

	consensus, err := e.orchestrator.Deliberate(ctx, opts.Agents, e.deliberate)
	if err != nil {
		return nil, fmt.Errorf("multi-agent deliberation failed: %w", err)
	}

	e.events.Emit(EventConsensus, map[string]any{
		"goal":      goal,
		"consensus": consensus.Outcome,
	})

	// Agreement ratio: how much of the panel backed the winning outcome.
	confidence := float64(len(consensus.Participants)) / float64(len(opts.Agents))

	return ConsensusOutcome{
		SessionID: session,
		Result:    toolResult,
		Consensus: consensus,
		Score:     clamp01(confidence),
	}, nil
}

func meanConfidence(nodes []ReasoningNode, path []string) float64 {
	if len(path) == 0 {
		return 0
	}
	index := indexByID(nodes)
	sum := 0.0
	count := 0
	for _, id := range path {
		if i, ok := index[id]; ok {
			sum += nodes[i].Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
