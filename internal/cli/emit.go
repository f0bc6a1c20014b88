package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sobootstrap/internal/emit"
	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	*RootOptions
	Indent   int
	Prettify bool
	Output   string // write the bootstrap here instead of stdout
}

// EmitResult is the JSON payload of the emit command.
type EmitResult struct {
	Target     string           `json:"target"`
	Digest     string           `json:"digest"`
	Settings   ir.Settings      `json:"settings"`
	Primitives []emit.Primitive `json:"primitives"`
	Source     string           `json:"source,omitempty"`
	Output     string           `json:"output,omitempty"`
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	defaults := ir.DefaultSettings()
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit <target>",
		Short: "Render a target's bootstrap",
		Long: `Render the bootstrap for one target from the operator registry and
type table. Settings change layout only, never semantics.

Examples:
  soboot emit javascript
  soboot emit python --indent 4 -o bootstrap.py
  soboot emit javascript --prettify=false --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Indent, "indent", defaults.Indent, "indent width in spaces")
	cmd.Flags().BoolVar(&opts.Prettify, "prettify", defaults.Prettify, "emit whitespace and line breaks")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runEmit(opts *EmitOptions, target string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	adapter, err := emit.Lookup(target)
	if err != nil {
		_ = formatter.Error(ErrCodeUnknownTarget, err.Error(), emit.Targets())
		return WrapExitError(ExitCommandError, "emit failed", err)
	}

	settings := ir.Settings{Indent: opts.Indent, Prettify: opts.Prettify}
	formatter.VerboseLog("Rendering %s bootstrap (indent=%d, prettify=%t)", target, settings.Indent, settings.Prettify)

	em, err := adapter.Emit(registry.Default(), registry.DefaultTypes(), settings)
	if err != nil {
		code := ErrCodeGeneric
		var re *emit.RenderError
		if errors.As(err, &re) {
			code = ErrCodeRenderFailed
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "emit failed", err)
	}

	digest, err := em.Digest()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "emit failed", err)
	}
	formatter.VerboseLog("Digest %s, %d primitives", digest, len(em.Primitives))

	result := EmitResult{
		Target:     em.Target,
		Digest:     digest,
		Settings:   em.Settings,
		Primitives: em.Primitives,
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, em.Source, 0o644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", opts.Output, err), nil)
			return WrapExitError(ExitCommandError, "emit failed", err)
		}
		result.Output = opts.Output
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		return formatter.Success(fmt.Sprintf("Wrote %s bootstrap to %s", target, opts.Output))
	}

	if opts.Format == "json" {
		result.Source = string(em.Source)
		return formatter.Success(result)
	}
	_, err = cmd.OutOrStdout().Write(em.Source)
	return err
}
