package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-reason/internal/reasoning"
)

// Severity classifies a diagnostic finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Listings slower than this get flagged.
const slowListingThreshold = 2 * time.Second

// Finding is one observation produced by a diagnostic probe.
type Finding struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// Report is the outcome of a full diagnostic pass: the raw findings plus
// a reasoned narrative with a confidence derived from the reasoning path.
type Report struct {
	ID         string                    `json:"id"`
	Endpoint   string                    `json:"endpoint"`
	Findings   []Finding                 `json:"findings"`
	Narrative  string                    `json:"narrative"`
	Confidence float64                   `json:"confidence"`
	Path       []reasoning.ReasoningStep `json:"path"`
	Elapsed    time.Duration             `json:"elapsed"`
}

// serverProbe is the view of a connected client the diagnostician needs.
type serverProbe interface {
	Endpoint() string
	ServerSupportsTools() bool
	ServerSupportsResources() bool
	ServerSupportsPrompts() bool
	Tools() []mcp.Tool
	RefreshListings(ctx context.Context) (time.Duration, error)
}

// Diagnostician probes a live MCP server for protocol anomalies and walks
// the findings through a ReAct pass to compose a root-cause narrative.
type Diagnostician struct {
	probe  serverProbe
	logger *Logger
}

// NewDiagnostician creates a diagnostician over a connected client.
func NewDiagnostician(probe serverProbe, logger *Logger) *Diagnostician {
	return &Diagnostician{probe: probe, logger: logger}
}

// Diagnose runs every probe and returns the composed report.
func (d *Diagnostician) Diagnose(ctx context.Context) (Report, error) {
	start := time.Now()

	var findings []Finding
	findings = append(findings, d.probeCapabilities()...)
	findings = append(findings, d.probeListings(ctx)...)
	findings = append(findings, d.probeToolHygiene()...)

	narrative := composeNarrative(findings)
	if d.logger != nil {
		d.logger.InfoVerbose("diagnostics collected %d findings", len(findings))
	}

	// Walk the findings as observations of a ReAct run so the report
	// carries an explainable path, not just a verdict.
	steps := findingWalkTool(findings, narrative)
	engine := reasoning.NewEngine(reasoning.EngineConfig{Tools: steps})
	defer engine.Close()
	outcome, err := engine.ExecuteWithReasoning(ctx, "", nil, reasoning.ModeReact, reasoning.Options{
		Goal:          "diagnose MCP server at " + d.probe.Endpoint(),
		MaxIterations: len(findings) + 1,
	})
	if err != nil {
		return Report{}, fmt.Errorf("diagnostic reasoning failed: %w", err)
	}
	react, ok := outcome.(reasoning.ReactOutcome)
	if !ok {
		return Report{}, fmt.Errorf("unexpected outcome type %T", outcome)
	}

	return Report{
		ID:         uuid.NewString(),
		Endpoint:   d.probe.Endpoint(),
		Findings:   findings,
		Narrative:  narrative,
		Confidence: outcome.Confidence(),
		Path:       react.Path,
		Elapsed:    time.Since(start),
	}, nil
}

// findingWalkTool exposes the findings one per planning step, concluding
// with the narrative once all are consumed.
func findingWalkTool(findings []Finding, narrative string) reasoning.ToolFunc {
	return func(ctx context.Context, tool string, input map[string]any) (any, error) {
		step := asInt(input["step"])
		if step < len(findings) {
			f := findings[step]
			return map[string]any{
				"done":    false,
				"summary": fmt.Sprintf("%s [%s]: %s", f.Check, f.Severity, f.Detail),
			}, nil
		}
		return map[string]any{
			"done":  true,
			"value": "final answer: " + narrative,
		}, nil
	}
}

func (d *Diagnostician) probeCapabilities() []Finding {
	capability := func(name string, supported bool) Finding {
		if supported {
			return Finding{
				Check:    "capabilities",
				Severity: SeverityInfo,
				Detail:   fmt.Sprintf("server advertises %s support", name),
			}
		}
		return Finding{
			Check:    "capabilities",
			Severity: SeverityWarning,
			Detail:   fmt.Sprintf("server does not advertise %s support", name),
		}
	}
	return []Finding{
		capability("tools", d.probe.ServerSupportsTools()),
		capability("resources", d.probe.ServerSupportsResources()),
		capability("prompts", d.probe.ServerSupportsPrompts()),
	}
}

func (d *Diagnostician) probeListings(ctx context.Context) []Finding {
	elapsed, err := d.probe.RefreshListings(ctx)
	if err != nil {
		return []Finding{{
			Check:    "listings",
			Severity: SeverityCritical,
			Detail:   fmt.Sprintf("listing refresh failed after %v: %v", elapsed.Round(time.Millisecond), err),
		}}
	}
	if elapsed > slowListingThreshold {
		return []Finding{{
			Check:    "listings",
			Severity: SeverityWarning,
			Detail:   fmt.Sprintf("listing refresh took %v, above the %v threshold", elapsed.Round(time.Millisecond), slowListingThreshold),
		}}
	}
	return []Finding{{
		Check:    "listings",
		Severity: SeverityInfo,
		Detail:   fmt.Sprintf("listing refresh completed in %v", elapsed.Round(time.Millisecond)),
	}}
}

func (d *Diagnostician) probeToolHygiene() []Finding {
	tools := d.probe.Tools()
	var findings []Finding

	seen := make(map[string]bool, len(tools))
	for _, tool := range tools {
		if seen[tool.Name] {
			findings = append(findings, Finding{
				Check:    "tool hygiene",
				Severity: SeverityCritical,
				Detail:   fmt.Sprintf("duplicate tool name %q", tool.Name),
			})
		}
		seen[tool.Name] = true

		if tool.Description == "" {
			findings = append(findings, Finding{
				Check:    "tool hygiene",
				Severity: SeverityWarning,
				Detail:   fmt.Sprintf("tool %q has no description", tool.Name),
			})
		}

		if tool.InputSchema.Type == "" && len(tool.InputSchema.Properties) == 0 {
			findings = append(findings, Finding{
				Check:    "tool hygiene",
				Severity: SeverityWarning,
				Detail:   fmt.Sprintf("tool %q has an empty input schema", tool.Name),
			})
		}
	}

	if len(findings) == 0 {
		findings = append(findings, Finding{
			Check:    "tool hygiene",
			Severity: SeverityInfo,
			Detail:   fmt.Sprintf("%d tools listed, no anomalies", len(tools)),
		})
	}
	return findings
}

// composeNarrative folds the findings into a one-paragraph verdict keyed
// on the worst observed severity.
func composeNarrative(findings []Finding) string {
	counts := map[Severity]int{}
	var details []string
	for _, f := range findings {
		counts[f.Severity]++
		if f.Severity != SeverityInfo {
			details = append(details, f.Detail)
		}
	}

	switch {
	case counts[SeverityCritical] > 0:
		return fmt.Sprintf("server is unhealthy: %s", strings.Join(details, "; "))
	case counts[SeverityWarning] > 0:
		return fmt.Sprintf("server is degraded: %s", strings.Join(details, "; "))
	default:
		return fmt.Sprintf("server is healthy: %d checks passed", len(findings))
	}
}

// FormatReport renders a report for terminal display.
func FormatReport(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Diagnostic report %s for %s\n", r.ID, r.Endpoint)
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "  [%s] %s: %s\n", f.Severity, f.Check, f.Detail)
	}
	fmt.Fprintf(&b, "Narrative: %s\n", r.Narrative)
	fmt.Fprintf(&b, "Confidence: %.2f (elapsed %v)\n", r.Confidence, r.Elapsed.Round(time.Millisecond))
	return b.String()
}
