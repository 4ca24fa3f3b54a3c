package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestClient(buf *bytes.Buffer) *Client {
	logger := NewLoggerWithWriter(false, false, false, buf)
	return NewClient(ClientConfig{
		Endpoint:  "http://localhost:8090/mcp",
		Transport: "streamable-http",
		Logger:    logger,
		Version:   "test",
	})
}

func TestServerCapabilityChecking(t *testing.T) {
	client := newTestClient(&bytes.Buffer{})

	// Test with no capabilities set (should all return false)
	if client.ServerSupportsTools() {
		t.Error("Expected ServerSupportsTools to return false when no capabilities are set")
	}
	if client.ServerSupportsResources() {
		t.Error("Expected ServerSupportsResources to return false when no capabilities are set")
	}
	if client.ServerSupportsPrompts() {
		t.Error("Expected ServerSupportsPrompts to return false when no capabilities are set")
	}

	if client.serverCapabilities != nil {
		t.Error("Expected serverCapabilities to be nil initially")
	}
}

func TestNewClient(t *testing.T) {
	client := newTestClient(&bytes.Buffer{})

	if client == nil {
		t.Fatal("Expected client to be created, but got nil")
	}
	if client.Endpoint() != "http://localhost:8090/mcp" {
		t.Errorf("unexpected endpoint %q", client.Endpoint())
	}
	if len(client.Tools()) != 0 || len(client.Resources()) != 0 || len(client.Prompts()) != 0 {
		t.Error("expected empty caches on a fresh client")
	}
}

func TestShouldReconnect(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "context canceled", err: context.Canceled, want: true},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "broken pipe", err: errors.New("write: broken pipe"), want: true},
		{name: "unexpected eof", err: errors.New("unexpected EOF"), want: true},
		{name: "application error", err: errors.New("tool not found"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldReconnect(tt.err); got != tt.want {
				t.Errorf("shouldReconnect(%v) = %v, expected %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestShowDiff(t *testing.T) {
	t.Run("additions and removals", func(t *testing.T) {
		buf := &bytes.Buffer{}
		client := newTestClient(buf)

		client.showDiff("Tool", []string{"alpha", "beta"}, []string{"beta", "gamma"})

		output := buf.String()
		if !strings.Contains(output, "+ Added: gamma") {
			t.Errorf("expected addition of gamma, got %q", output)
		}
		if !strings.Contains(output, "- Removed: alpha") {
			t.Errorf("expected removal of alpha, got %q", output)
		}
		if !strings.Contains(output, "Unchanged: beta") {
			t.Errorf("expected beta unchanged, got %q", output)
		}
	})

	t.Run("no changes", func(t *testing.T) {
		buf := &bytes.Buffer{}
		client := newTestClient(buf)

		client.showDiff("Tool", []string{"alpha"}, []string{"alpha"})

		if !strings.Contains(buf.String(), "No tool changes detected") {
			t.Errorf("expected no-change message, got %q", buf.String())
		}
	})
}

func TestPrettyJSON(t *testing.T) {
	out := PrettyJSON(map[string]int{"a": 1})
	if !strings.Contains(out, "\"a\": 1") {
		t.Errorf("expected indented JSON, got %q", out)
	}

	// Unmarshalable values fall back to a %+v dump instead of erroring.
	out = PrettyJSON(make(chan int))
	if out == "" {
		t.Error("expected a fallback representation for unmarshalable values")
	}
}
