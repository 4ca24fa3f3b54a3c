// Package agent provides the MCP reasoning agent implementation.
//
// This package includes client connectivity for MCP servers, a protocol
// diagnostician that probes a live server for anomalies and composes a
// root-cause narrative, interactive REPL capabilities, and an MCP server
// implementation that exposes the reasoning strategies as MCP tools.
//
// # Key Components
//
//   - Client: connects to MCP servers and handles communication
//   - Diagnostician: probes a server and builds a diagnostic Report
//   - PanelOrchestrator: concurrent multi-agent consensus
//   - REPL: interactive Read-Eval-Print Loop for exploration and reasoning
//   - MCPServer: exposes reasoning and diagnostics as an MCP server
//   - Logger: formatted logging with color support and JSON-RPC tracking
//
// The reasoning strategies themselves live in internal/reasoning; this
// package wires them to live MCP transports and to deterministic local
// callbacks.
package agent
