package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/sobootstrap/internal/emit"
	"github.com/roach88/sobootstrap/internal/registry"
)

// OpsResult is the contract listing printed by the ops command.
type OpsResult struct {
	Operators      []registry.OperatorDescriptor `json:"operators"`
	Types          []TypeEntry                   `json:"types"`
	ContractDigest string                        `json:"contract_digest"`
	Targets        []string                      `json:"targets"`
}

// TypeEntry is one type descriptor in the listing.
type TypeEntry struct {
	Tag  string `json:"tag"`
	Rule string `json:"rule"`
}

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the operator registry and type table",
		Long: `List every operator descriptor in canonical order, the type descriptors
and the contract digest every backend is checked against.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOps(rootOpts, cmd)
		},
	}
}

func runOps(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg, types := registry.Default(), registry.DefaultTypes()
	digest, err := registry.ContractDigest(reg, types)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "contract digest failed", err)
	}

	result := OpsResult{
		Operators:      reg.All(),
		ContractDigest: digest,
		Targets:        emit.Targets(),
	}
	for _, d := range types.All() {
		result.Types = append(result.Types, TypeEntry{Tag: string(d.Tag()), Rule: d.Rule()})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	writeOpsText(cmd.OutOrStdout(), result)
	return nil
}

func writeOpsText(w io.Writer, r OpsResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tID\tSYMBOL\tARITY\tFOLD\tSEED\tFAILURE")
	for _, d := range r.Operators {
		symbol := d.Symbol
		if symbol == "" {
			symbol = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			d.Name(), uint8(d.Code), symbol, d.Arity.Shape(), d.Fold, seedText(d.Identity), d.Failure)
	}
	tw.Flush()

	fmt.Fprintln(w)
	for _, t := range r.Types {
		fmt.Fprintf(w, "%-7s %s\n", t.Tag, t.Rule)
	}
	fmt.Fprintf(w, "\ncontract %s\ntargets  %v\n", r.ContractDigest, r.Targets)
}

func seedText(id registry.Identity) string {
	switch id.Kind {
	case registry.IdentityConstant:
		return fmt.Sprintf("%g", id.Value)
	case registry.IdentityFirstOperand:
		return "first"
	default:
		return "-"
	}
}
