package reasoning

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrProgramTimeout is returned when a program run exceeds its wall-clock
// budget. Partial results are never returned alongside it.
var ErrProgramTimeout = errors.New("program execution exceeded time budget")

// ProgramStep is one auditable step of a symbolic execution trace. Deps
// name prior variables; the produced sequence is already in dependency
// order because steps are appended as they evaluate.
type ProgramStep struct {
	Variable  string   `json:"variable"`
	Operation string   `json:"operation"`
	Result    any      `json:"result,omitempty"`
	Deps      []string `json:"deps,omitempty"`
}

// ProgramResult bundles the full program, its numeric result, and the
// human-readable trace lines.
type ProgramResult struct {
	Program []ProgramStep `json:"program"`
	Result  float64       `json:"result"`
	Trace   []string      `json:"trace"`
}

const (
	defaultProgramTimeout = time.Second

	opParse    = "parse"
	opAdd      = "add"
	opMultiply = "multiply"
)

var (
	numberPattern   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	multiplyPattern = regexp.MustCompile(`(?i)product|multiply`)
)

// ProgramExecutor runs the deterministic Program-of-Thought strategy: it
// extracts numeric literals from the problem text and folds them with an
// operation chosen from the wording. The only suspension point is the
// cooperative elapsed-time check before each step.
type ProgramExecutor struct {
	timeout time.Duration
}

// ProgramOption configures a ProgramExecutor.
type ProgramOption func(*ProgramExecutor)

// WithProgramTimeout overrides the 1s default budget. A zero budget makes
// every run fail immediately, which is useful for testing the timeout
// path.
func WithProgramTimeout(d time.Duration) ProgramOption {
	return func(p *ProgramExecutor) { p.timeout = d }
}

// NewProgramExecutor builds an executor with the default budget applied.
func NewProgramExecutor(opts ...ProgramOption) *ProgramExecutor {
	p := &ProgramExecutor{timeout: defaultProgramTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run extracts every integer/decimal literal from problem in order (or [0]
// when none appear), emits a parse step per value, then folds them with
// add or multiply. A timeout aborts the whole call; it is raised, not
// swallowed.
func (p *ProgramExecutor) Run(problem string) (ProgramResult, error) {
	start := time.Now()
	guard := func() error {
		if time.Since(start) >= p.timeout {
			return fmt.Errorf("%w (%s)", ErrProgramTimeout, p.timeout)
		}
		return nil
	}

	values, err := extractNumbers(problem)
	if err != nil {
		return ProgramResult{}, err
	}

	var result ProgramResult
	deps := make([]string, 0, len(values))
	for i, v := range values {
		if err := guard(); err != nil {
			return ProgramResult{}, err
		}
		variable := fmt.Sprintf("x%d", i)
		result.Program = append(result.Program, ProgramStep{
			Variable:  variable,
			Operation: opParse,
			Result:    v,
		})
		result.Trace = append(result.Trace, variable+"="+formatNumber(v))
		deps = append(deps, variable)
	}

	operation := opAdd
	acc := 0.0
	if multiplyPattern.MatchString(problem) {
		operation = opMultiply
		acc = 1.0
	}
	for _, v := range values {
		if err := guard(); err != nil {
			return ProgramResult{}, err
		}
		if operation == opMultiply {
			acc *= v
		} else {
			acc += v
		}
	}

	final := fmt.Sprintf("x%d", len(values))
	result.Program = append(result.Program, ProgramStep{
		Variable:  final,
		Operation: operation,
		Result:    acc,
		Deps:      deps,
	})
	result.Trace = append(result.Trace, final+"="+formatNumber(acc))
	result.Result = acc

	return result, nil
}

func extractNumbers(problem string) ([]float64, error) {
	matches := numberPattern.FindAllString(problem, -1)
	if len(matches) == 0 {
		return []float64{0}, nil
	}
	values := make([]float64, len(matches))
	for i, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse numeric literal %q: %w", m, err)
		}
		values[i] = v
	}
	return values, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
