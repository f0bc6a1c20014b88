package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sobootstrap/internal/conformance"
	"github.com/roach88/sobootstrap/internal/emit"
	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Indent   int
	Prettify bool
	File     string // check this source instead of a fresh rendering
}

// ValidationResult holds the conformance reports of every checked target.
type ValidationResult struct {
	Valid   bool                  `json:"valid"`
	Reports []*conformance.Report `json:"reports"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	defaults := ir.DefaultSettings()
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [targets...]",
		Short: "Check bootstraps against the runtime contract",
		Long: `Render each target's bootstrap and check it against the operator registry
and type table. With no targets, every shipped target is checked.

--file checks a bootstrap on disk (for example a hand-edited one) in place
of the rendering; it needs exactly one target.

Exit codes:
  0 - Every target is conformant
  1 - One or more targets are non-conformant
  2 - Command error (unknown target, unreadable file, etc.)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Indent, "indent", defaults.Indent, "indent width in spaces")
	cmd.Flags().BoolVar(&opts.Prettify, "prettify", defaults.Prettify, "emit whitespace and line breaks")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "bootstrap source to check instead of rendering")

	return cmd
}

func runValidate(opts *ValidateOptions, targets []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if len(targets) == 0 {
		targets = emit.Targets()
	}
	if opts.File != "" && len(targets) != 1 {
		_ = formatter.Error(ErrCodeGeneric, "--file needs exactly one target", nil)
		return NewExitError(ExitCommandError, "--file needs exactly one target")
	}

	settings := ir.Settings{Indent: opts.Indent, Prettify: opts.Prettify}
	result := ValidationResult{Valid: true, Reports: []*conformance.Report{}}

	for _, target := range targets {
		em, err := emissionFor(target, settings, opts.File)
		if err != nil {
			return outputValidateError(formatter, err)
		}
		formatter.VerboseLog("Checking %s (%d primitives)", target, len(em.Primitives))

		report, err := conformance.Check(commandContext(cmd), em)
		if err != nil {
			return outputValidateError(formatter, err)
		}
		result.Reports = append(result.Reports, report)
		if !report.Conformant() {
			result.Valid = false
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		writeReportsText(cmd.OutOrStdout(), result.Reports)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "non-conformant targets")
	}
	return nil
}

// emissionFor renders target's bootstrap. When file is set, its contents
// replace the rendered source so the primitive list stays the contract's.
func emissionFor(target string, settings ir.Settings, file string) (*emit.Emission, error) {
	adapter, err := emit.Lookup(target)
	if err != nil {
		return nil, err
	}
	em, err := adapter.Emit(registry.Default(), registry.DefaultTypes(), settings)
	if err != nil {
		return nil, err
	}
	if file != "" {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading bootstrap: %v", err)}
		}
		em.Source = src
	}
	return em, nil
}

func outputValidateError(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	switch e := err.(type) {
	case *emit.UnsupportedTargetError:
		code = ErrCodeUnknownTarget
	case *emit.RenderError:
		code = ErrCodeRenderFailed
	case *LoadError:
		code = e.Code
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "validation failed", err)
}

func writeReportsText(w io.Writer, reports []*conformance.Report) {
	for _, r := range reports {
		if r.Conformant() {
			fmt.Fprintf(w, "✓ %s conformant\n", r.Target)
			continue
		}
		fmt.Fprintf(w, "✗ %s non-conformant\n", r.Target)
		for _, reason := range r.Reasons {
			fmt.Fprintf(w, "  %s\n", reason)
		}
	}
}
