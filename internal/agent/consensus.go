package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/giantswarm/mcp-reason/internal/reasoning"
)

// PanelOrchestrator runs a panel of agents concurrently and aggregates
// their proposals by majority vote. An optional validator can veto
// individual deliberations before they count.
type PanelOrchestrator struct {
	validator reasoning.ThoughtValidator
}

// PanelOption configures a PanelOrchestrator.
type PanelOption func(*PanelOrchestrator)

// WithValidator gates every deliberation through v before it is counted.
func WithValidator(v reasoning.ThoughtValidator) PanelOption {
	return func(p *PanelOrchestrator) {
		p.validator = v
	}
}

// NewPanelOrchestrator creates an orchestrator with the given options.
func NewPanelOrchestrator(opts ...PanelOption) *PanelOrchestrator {
	p := &PanelOrchestrator{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type panelVote struct {
	index        int
	deliberation reasoning.Deliberation
	err          error
}

// Deliberate fans deliberate out across all agents, drops deliberations
// the validator rejects, and returns the majority outcome. Ties break by
// highest mean confidence, then by first appearance in the agent order.
func (p *PanelOrchestrator) Deliberate(ctx context.Context, agents []reasoning.Agent, deliberate reasoning.DeliberateFunc) (reasoning.Consensus, error) {
	if len(agents) == 0 {
		return reasoning.Consensus{}, errors.New("deliberation requires at least one agent")
	}
	if deliberate == nil {
		return reasoning.Consensus{}, errors.New("deliberation requires a deliberate callback")
	}

	votes := make([]panelVote, len(agents))
	var wg sync.WaitGroup
	for i, agent := range agents {
		wg.Add(1)
		go func(i int, agent reasoning.Agent) {
			defer wg.Done()
			d, err := deliberate(ctx, agent)
			votes[i] = panelVote{index: i, deliberation: d, err: err}
		}(i, agent)
	}
	wg.Wait()

	// Collect deliberations in agent order, dropping failures and vetoes.
	type tally struct {
		supporters []string
		sum        float64
		count      int
	}
	tallies := map[string]*tally{}
	var order []string
	accepted := 0

	for _, vote := range votes {
		if vote.err != nil {
			return reasoning.Consensus{}, fmt.Errorf("agent %s failed to deliberate: %w", agents[vote.index].ID, vote.err)
		}
		if p.validator != nil {
			if err := p.validator.Validate(ctx, vote.deliberation); err != nil {
				continue
			}
		}
		accepted++

		proposal := vote.deliberation.Proposal
		t, ok := tallies[proposal]
		if !ok {
			t = &tally{}
			tallies[proposal] = t
			order = append(order, proposal)
		}
		t.supporters = append(t.supporters, vote.deliberation.AgentID)
		t.sum += vote.deliberation.Confidence
		t.count++
	}

	if accepted == 0 {
		return reasoning.Consensus{}, errors.New("no deliberation passed validation")
	}

	var winner string
	var winning *tally
	for _, proposal := range order {
		t := tallies[proposal]
		if winning == nil {
			winner, winning = proposal, t
			continue
		}
		if t.count > winning.count {
			winner, winning = proposal, t
			continue
		}
		if t.count == winning.count {
			mean := t.sum / float64(t.count)
			winningMean := winning.sum / float64(winning.count)
			if mean > winningMean {
				winner, winning = proposal, t
			}
			// Equal mean keeps the earlier proposal.
		}
	}

	return reasoning.Consensus{
		Outcome:      winner,
		Participants: winning.supporters,
	}, nil
}
