// Package reasoning implements the multi-strategy reasoning engine behind
// mcp-reason.
//
// Five strategies are available through the Engine's ExecuteWithReasoning
// entry point:
//
//   - ReAct: a bounded thought/action/observation loop that drives an
//     injected tool executor until a final answer marker appears
//   - Tree-of-Thoughts: beam-pruned breadth-first search over proposed
//     candidate thoughts, each scored for promise
//   - Reflexion: a single corrective pass that rewrites a failed attempt
//     from critique, optionally persisted through an EpisodeStore
//   - Program-of-Thought: a deterministic, auditable arithmetic trace with
//     a cooperative wall-clock budget
//   - Multi-agent consensus: concurrent deliberation delegated to an
//     external MultiAgentOrchestrator
//
// Strategies never call a language model directly. The propose, score,
// tool-execution, and deliberation callbacks are injected by the caller,
// which keeps the engine deterministic under test and transport-agnostic
// in production.
//
// A GraphTracker turns a ReAct path into a typed reasoning graph
// (question, tool_call, observation, conclusion nodes) for explainability,
// with cycle verification and confidence-weighted best-path scoring.
package reasoning
