package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sobootstrap/internal/compiler"
	"github.com/roach88/sobootstrap/internal/evaluator"
	"github.com/roach88/sobootstrap/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Steps bool // print every step's result, not just the last
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Program  string                 `json:"program"`
	Results  []ir.Value             `json:"results"`
	Warnings []compiler.UsageWarning `json:"warnings,omitempty"`
}

// ProgramErrors is the JSON detail for a program that failed validation.
type ProgramErrors struct {
	Errors []compiler.ValidationError `json:"errors"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program.yaml>",
		Short: "Validate and evaluate an IR program",
		Long: `Validate an IR program against the operator registry, then evaluate its
steps in order with the reference semantics. The last step's result is
printed through the print primitive.

Exit codes:
  0 - Program ran to completion
  1 - Program is invalid or a step raised
  2 - Command error (unreadable file, malformed YAML)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Steps, "steps", false, "print every step's result")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("reading program: %v", err), nil)
		return WrapExitError(ExitCommandError, "run failed", err)
	}
	prog, err := compiler.ParseProgram(data)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "run failed", err)
	}
	formatter.VerboseLog("Loaded program %q with %d step(s)", prog.Name, len(prog.Steps))

	if verrs := compiler.Validate(prog); len(verrs) > 0 {
		if opts.Format == "json" {
			_ = formatter.Error(verrs[0].Code, fmt.Sprintf("%d validation error(s)", len(verrs)), ProgramErrors{Errors: verrs})
		} else {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✗ %s: %d validation error(s)\n", path, len(verrs))
			for _, e := range verrs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return NewExitError(ExitFailure, "invalid program")
	}

	warnings := compiler.AnalyzeUsage(prog)
	for _, w := range warnings {
		formatter.VerboseLog("%s: step %d: %s", w.Level, w.Step, w.Message)
	}

	// Cancel between steps on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := evaluator.RunProgram(ctx, prog)
	if err != nil {
		var stepErr *evaluator.StepError
		if errors.As(err, &stepErr) {
			_ = formatter.Error(ErrCodeEvalFailed, err.Error(), map[string]any{"step": stepErr.Index, "op": stepErr.Op.String()})
			return WrapExitError(ExitFailure, "program raised", err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "run interrupted", err)
	}

	if opts.Format == "json" {
		return formatter.Success(RunResult{Program: prog.Name, Results: results, Warnings: warnings})
	}

	console := evaluator.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
	if opts.Steps {
		w := cmd.OutOrStdout()
		for i, v := range results {
			fmt.Fprintf(w, "$%d %s = ", i, prog.Steps[i].Op)
			if err := console.Print(v); err != nil {
				return err
			}
		}
		return nil
	}
	if len(results) > 0 {
		return console.Print(results[len(results)-1])
	}
	return nil
}

// commandContext returns cmd's context, or Background when the command was
// executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
