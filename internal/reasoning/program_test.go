package reasoning

import (
	"errors"
	"testing"
)

func TestRunSum(t *testing.T) {
	result, err := NewProgramExecutor().Run("Compute sum of 2 and 3")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Program) != 3 {
		t.Fatalf("expected 3 program steps, got %d", len(result.Program))
	}

	final := result.Program[2]
	if final.Operation != opAdd {
		t.Errorf("final operation = %q, expected add", final.Operation)
	}
	if final.Variable != "x2" {
		t.Errorf("final variable = %q, expected x2", final.Variable)
	}
	if len(final.Deps) != 2 || final.Deps[0] != "x0" || final.Deps[1] != "x1" {
		t.Errorf("unexpected final deps: %v", final.Deps)
	}
	if result.Result != 5 {
		t.Errorf("result = %v, expected 5", result.Result)
	}

	var sawTrace bool
	for _, line := range result.Trace {
		if line == "x2=5" {
			sawTrace = true
		}
	}
	if !sawTrace {
		t.Errorf("trace missing x2=5: %v", result.Trace)
	}
}

func TestRunOperationSelection(t *testing.T) {
	tests := []struct {
		name    string
		problem string
		wantOp  string
		want    float64
	}{
		{name: "product keyword", problem: "product of 2, 3 and 4", wantOp: opMultiply, want: 24},
		{name: "multiply keyword", problem: "Multiply 6 by 7", wantOp: opMultiply, want: 42},
		{name: "default is add", problem: "combine 1 and 2 and 3", wantOp: opAdd, want: 6},
		{name: "negatives and decimals", problem: "add -1.5 and 2", wantOp: opAdd, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewProgramExecutor().Run(tt.problem)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			final := result.Program[len(result.Program)-1]
			if final.Operation != tt.wantOp {
				t.Errorf("operation = %q, expected %q", final.Operation, tt.wantOp)
			}
			if result.Result != tt.want {
				t.Errorf("result = %v, expected %v", result.Result, tt.want)
			}
		})
	}
}

func TestRunNoNumbers(t *testing.T) {
	result, err := NewProgramExecutor().Run("no numerals here")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Program) != 2 {
		t.Fatalf("expected parse + fold steps, got %d", len(result.Program))
	}
	if result.Program[0].Result != 0.0 {
		t.Errorf("expected fallback literal 0, got %v", result.Program[0].Result)
	}
	if result.Result != 0 {
		t.Errorf("result = %v, expected 0", result.Result)
	}
}

func TestRunNegativeLiteralTrace(t *testing.T) {
	result, err := NewProgramExecutor().Run("add -1.5 and 2")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Trace[0] != "x0=-1.5" {
		t.Errorf("trace[0] = %q, expected x0=-1.5", result.Trace[0])
	}
}

func TestRunZeroBudgetAlwaysTimesOut(t *testing.T) {
	_, err := NewProgramExecutor(WithProgramTimeout(0)).Run("Compute sum of 2 and 3")
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !errors.Is(err, ErrProgramTimeout) {
		t.Errorf("expected ErrProgramTimeout, got %v", err)
	}
}
