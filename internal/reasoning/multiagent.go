package reasoning

import "context"

// Agent describes one panel member handed to the multi-agent orchestrator.
type Agent struct {
	ID           string   `json:"id"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// Deliberation is one agent's independent take on the goal.
type Deliberation struct {
	AgentID    string          `json:"agentId"`
	Proposal   string          `json:"proposal"`
	Confidence float64         `json:"confidence"`
	Steps      []ReasoningStep `json:"steps,omitempty"`
}

// Consensus is the aggregated multi-agent result.
type Consensus struct {
	Outcome      string   `json:"outcome"`
	Participants []string `json:"participants"`
}

// DeliberateFunc produces one agent's deliberation.
type DeliberateFunc func(ctx context.Context, agent Agent) (Deliberation, error)

// MultiAgentOrchestrator is the external collaborator that fans
// deliberation out across agents and aggregates a consensus. The engine
// treats it as opaque.
type MultiAgentOrchestrator interface {
	Deliberate(ctx context.Context, agents []Agent, fn DeliberateFunc) (Consensus, error)
}

// ThoughtValidator is the external policy gate applied to individual
// deliberations before they count toward consensus. Its internals are
// opaque to this package.
type ThoughtValidator interface {
	Validate(ctx context.Context, d Deliberation) error
}
