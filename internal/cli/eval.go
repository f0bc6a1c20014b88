package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sobootstrap/internal/evaluator"
	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// EvalResult is the JSON payload of the eval command.
type EvalResult struct {
	Op    string   `json:"op"`
	Args  []string `json:"args"`
	Value ir.Value `json:"value"`
	Kind  string   `json:"kind"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <op> [args...]",
		Short: "Evaluate one operator with the reference semantics",
		Long: `Evaluate an operator the way every bootstrap must. The operator is a
code name (POW, ADD, CAST, ...) or a surface symbol (^, +, :, ...).

Arguments are literals: true/false, numbers, or text ("quoted" to keep
numeric-looking text a string). :int, :float and :string are type tags.
A lone ? reads the argument from stdin through the input primitive.
Put -- before the operator when an argument is a negative number.

Examples:
  soboot eval POW 2 3 2
  soboot eval + '"1"' 2
  soboot eval CAST 3.9 :int
  soboot eval MUL ? ?`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(rootOpts, args[0], args[1:], cmd)
		},
	}
}

func runEval(opts *RootOptions, opName string, rawArgs []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	code, err := resolveOperator(opName)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "eval failed", err)
	}

	console := evaluator.NewConsole(cmd.InOrStdin(), cmd.ErrOrStderr())
	operands := make([]ir.Value, len(rawArgs))
	for i, raw := range rawArgs {
		switch {
		case raw == "?":
			v, err := console.Input(commandContext(cmd), fmt.Sprintf("%s operand %d? ", code, i))
			if err != nil {
				_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("reading operand %d: %v", i, err), nil)
				return WrapExitError(ExitCommandError, "eval failed", err)
			}
			operands[i] = v
		case strings.HasPrefix(raw, ":") && len(raw) > 1:
			operands[i] = ir.TypeTag(raw[1:])
		default:
			operands[i] = ir.ParseLiteral(raw)
		}
	}
	formatter.VerboseLog("Evaluating %s with %d operand(s)", code, len(operands))

	v, err := evaluator.Eval(code, operands...)
	if err != nil {
		_ = formatter.Error(ErrCodeEvalFailed, err.Error(), evalDetails(err))
		if registry.IsUnknownOperator(err) {
			return WrapExitError(ExitCommandError, "eval failed", err)
		}
		return WrapExitError(ExitFailure, "eval raised", err)
	}

	if opts.Format == "json" {
		return formatter.Success(EvalResult{Op: code.String(), Args: rawArgs, Value: v, Kind: v.Kind()})
	}
	return formatter.Success(registry.ToString(v))
}

// resolveOperator accepts a code name or a surface symbol.
func resolveOperator(name string) (ir.OperatorCode, error) {
	if d, ok := registry.Default().LookupSymbol(name); ok {
		return d.Code, nil
	}
	return ir.ParseOperatorCode(name)
}

func evalDetails(err error) any {
	var ce *registry.ContractError
	if errors.As(err, &ce) {
		return map[string]string{"kind": string(ce.Kind), "op": ce.Code.String()}
	}
	return nil
}
