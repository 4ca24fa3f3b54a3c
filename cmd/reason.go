package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-reason/internal/agent"
	"github.com/giantswarm/mcp-reason/internal/reasoning"
)

// newReasonCmd creates the offline reasoning subcommand
func newReasonCmd() *cobra.Command {
	var (
		mode           string
		maxIterations  int
		maxDepth       int
		beamWidth      int
		feedback       string
		programTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reason <goal...>",
		Short: "Run a reasoning strategy offline, without a server connection",
		Long: `Run the reasoning engine against a free-form goal using deterministic
local callbacks instead of a live MCP server.

Modes:
  react       - iterative thought/action/observation loop (default)
  tot         - Tree-of-Thoughts beam search
  reflexion   - self-improvement from feedback
  program     - symbolic arithmetic over numbers found in the goal
  multi-agent - panel deliberation with majority consensus

Examples:
  mcp-reason reason --mode react verify the calculate tool
  mcp-reason reason --mode program compute sum of 2 and 3
  mcp-reason reason --mode reflexion --feedback "missed edge cases" review the parser`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := strings.Join(args, " ")

			parsedMode, err := reasoning.ParseMode(mode)
			if err != nil {
				return err
			}

			logger := agent.NewLogger(verbose, !noColor, jsonRPC)
			engine := agent.NewOfflineEngine(logger, goal)
			defer engine.Close()

			opts := reasoning.Options{
				Goal:          goal,
				MaxIterations: maxIterations,
				MaxDepth:      maxDepth,
				BeamWidth:     beamWidth,
				Feedback:      feedback,
			}
			if cmd.Flags().Changed("program-timeout") {
				opts.ProgramTimeout = programTimeout
				opts.ProgramTimeoutSet = true
			}
			if parsedMode == reasoning.ModeMultiAgent {
				opts.Agents = agent.DefaultPanel()
			}

			outcome, err := engine.ExecuteWithReasoning(cmd.Context(), "", nil, parsedMode, opts)
			if err != nil {
				return fmt.Errorf("reasoning failed: %w", err)
			}

			fmt.Println(agent.PrettyJSON(outcome))
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "react", "Reasoning mode (react, tot, reflexion, program, multi-agent)")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "Iteration cap for react and reflexion modes (0 uses the default)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Depth cap for tot mode (0 uses the default)")
	cmd.Flags().IntVar(&beamWidth, "beam-width", 0, "Beam width for tot mode (0 uses the default)")
	cmd.Flags().StringVar(&feedback, "feedback", "", "Critique consumed by reflexion mode")
	cmd.Flags().DurationVar(&programTimeout, "program-timeout", time.Second, "Execution budget for program mode")

	return cmd
}
