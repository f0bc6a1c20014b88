package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/sobootstrap/internal/ir"
)

// StepError reports the step at which a program stopped.
type StepError struct {
	Index int
	Op    ir.OperatorCode
	Err   error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Op, e.Err)
}

// Unwrap returns the underlying contract error.
func (e *StepError) Unwrap() error { return e.Err }

// ErrBadReference is wrapped by StepError when an operand refers to the
// current step or a later one.
var ErrBadReference = errors.New("operand refers to a step that has not run")

// RunProgram evaluates the steps of prog in order with the default evaluator.
func RunProgram(ctx context.Context, prog *ir.Program) ([]ir.Value, error) {
	return defaultEvaluator.RunProgram(ctx, prog)
}

// RunProgram evaluates the steps of prog in order and returns every step's
// result. Cancellation is checked between steps; the results computed before
// a failure are returned alongside the error.
func (e *Evaluator) RunProgram(ctx context.Context, prog *ir.Program) ([]ir.Value, error) {
	results := make([]ir.Value, 0, len(prog.Steps))
	for i, step := range prog.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		args, err := resolveOperands(step.Operands, results)
		if err != nil {
			return results, &StepError{Index: i, Op: step.Op, Err: err}
		}

		v, err := e.Eval(step.Op, args...)
		if err != nil {
			return results, &StepError{Index: i, Op: step.Op, Err: err}
		}
		results = append(results, v)
	}
	return results, nil
}

func resolveOperands(operands []ir.Operand, results []ir.Value) ([]ir.Value, error) {
	args := make([]ir.Value, len(operands))
	for i, op := range operands {
		switch op.Kind() {
		case "ref":
			ref := *op.Ref
			if ref < 0 || ref >= len(results) {
				return nil, fmt.Errorf("operand %d: ref %d: %w", i, ref, ErrBadReference)
			}
			args[i] = results[ref]
		case "type":
			args[i] = op.Type
		case "literal":
			args[i] = op.Literal
		default:
			return nil, fmt.Errorf("operand %d is empty", i)
		}
	}
	return args, nil
}
