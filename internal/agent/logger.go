package agent

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/giantswarm/mcp-reason/internal/reasoning"
)

// ANSI color codes used when colored output is enabled.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Logger provides formatted logging with color support, verbosity gating,
// and optional full JSON-RPC message tracking.
type Logger struct {
	verbose bool
	color   bool
	jsonRPC bool
	mu      sync.Mutex
	out     io.Writer
}

// NewLogger creates a logger writing to stdout.
func NewLogger(verbose, color, jsonRPC bool) *Logger {
	return NewLoggerWithWriter(verbose, color, jsonRPC, os.Stdout)
}

// NewLoggerWithWriter creates a logger with a custom writer, used by tests.
func NewLoggerWithWriter(verbose, color, jsonRPC bool, out io.Writer) *Logger {
	return &Logger{
		verbose: verbose,
		color:   color,
		jsonRPC: jsonRPC,
		out:     out,
	}
}

func (l *Logger) print(prefix, colorCode, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	message := fmt.Sprintf(format, args...)
	if l.color && colorCode != "" {
		fmt.Fprintf(l.out, "%s%s%s%s\n", colorCode, prefix, message, colorReset)
	} else {
		fmt.Fprintf(l.out, "%s%s\n", prefix, message)
	}
}

// SetWriter redirects output, used by tests.
func (l *Logger) SetWriter(out io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = out
}

// SetVerbose toggles verbose output at runtime.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.print("", colorCyan, format, args...)
}

// InfoVerbose logs an informational message only when verbose is enabled.
func (l *Logger) InfoVerbose(format string, args ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	l.Info(format, args...)
}

// Debug logs a low-level message, shown only when verbose is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	l.print("", colorGray, format, args...)
}

// Success logs a success message.
func (l *Logger) Success(format string, args ...interface{}) {
	l.print("", colorGreen, format, args...)
}

// Warning logs a warning message.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.print("Warning: ", colorYellow, format, args...)
}

// WarningVerbose logs a warning only when verbose is enabled.
func (l *Logger) WarningVerbose(format string, args ...interface{}) {
	if l == nil || !l.verbose {
		return
	}
	l.Warning(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.print("Error: ", colorRed, format, args...)
}

// Request logs an outgoing JSON-RPC request. The params are dumped only
// when JSON-RPC logging is enabled.
func (l *Logger) Request(method string, params interface{}) {
	if !l.jsonRPC {
		l.InfoVerbose("→ %s", method)
		return
	}
	l.print("→ ", colorGray, "%s\n%s", method, PrettyJSON(params))
}

// Response logs an incoming JSON-RPC response.
func (l *Logger) Response(method string, result interface{}) {
	if !l.jsonRPC {
		l.InfoVerbose("← %s", method)
		return
	}
	l.print("← ", colorGray, "%s\n%s", method, PrettyJSON(result))
}

// Notification logs an incoming JSON-RPC notification.
func (l *Logger) Notification(method string, params interface{}) {
	if !l.jsonRPC {
		l.Info("⚡ %s", method)
		return
	}
	l.print("⚡ ", colorGray, "%s\n%s", method, PrettyJSON(params))
}

// ReasoningEvent logs one reasoning lifecycle event. Step events are
// verbose-gated; everything else always shows.
func (l *Logger) ReasoningEvent(ev reasoning.Event) {
	switch ev.Name {
	case reasoning.EventStep:
		if ev.Payload["errored"] == true {
			l.Warning("%s index=%v errored", ev.Name, ev.Payload["index"])
			return
		}
		l.InfoVerbose("%s index=%v", ev.Name, ev.Payload["index"])
	case reasoning.EventAborted:
		l.Warning("%s after %v iterations", ev.Name, ev.Payload["iterations"])
	case reasoning.EventCompleted:
		l.Info("%s success=%v iterations=%v", ev.Name, ev.Payload["success"], ev.Payload["iterations"])
	default:
		l.Info("%s %s", ev.Name, PrettyJSON(ev.Payload))
	}
}
