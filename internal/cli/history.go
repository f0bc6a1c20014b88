package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Latest   string // print the latest accepted bootstrap for this target
	Target   string
	Status   string
	Limit    int
}

// HistoryEntry is one release in the history listing.
type HistoryEntry struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Seq       int64               `json:"seq"`
	Revision  string              `json:"revision,omitempty"`
	Accepted  []string            `json:"accepted"`
	Rejected  []string            `json:"rejected"`
	Emissions []ir.EmissionRecord `json:"emissions"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded releases",
		Long: `List every release in the ledger in logical order, with the targets each
one accepted and excluded.

--latest <target> prints the most recent accepted bootstrap for a target
instead of the listing.

--target, --status and --limit switch to a flat listing of emissions across
releases, oldest release first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the release ledger (required)")
	cmd.Flags().StringVar(&opts.Latest, "latest", "", "print the latest accepted bootstrap for a target")
	cmd.Flags().StringVar(&opts.Target, "target", "", "only list emissions for this target")
	cmd.Flags().StringVar(&opts.Status, "status", "", "only list emissions with this status (accepted|rejected)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of emissions to list")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Opening would create an empty ledger; a missing one is an error here.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, storeFailure(err), "failed to open database", err)
	}
	defer st.Close()

	ctx := commandContext(cmd)

	if opts.Latest != "" {
		rec, err := st.LatestAccepted(ctx, opts.Latest)
		if errors.Is(err, sql.ErrNoRows) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no accepted release for target %s", opts.Latest), nil)
			return NewExitError(ExitFailure, "no accepted release")
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to read ledger", err)
		}
		if opts.Format == "json" {
			return formatter.Success(map[string]any{"emission": rec, "source": rec.Source})
		}
		_, err = io.WriteString(cmd.OutOrStdout(), rec.Source)
		return err
	}

	if opts.Target != "" || opts.Status != "" || opts.Limit > 0 {
		return runEmissionQuery(opts, cmd, st, formatter)
	}

	states, err := st.History(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to read ledger", err)
	}
	formatter.VerboseLog("Read %d release(s) from %s", len(states), opts.Database)

	entries := make([]HistoryEntry, len(states))
	for i, s := range states {
		entries[i] = HistoryEntry{
			ID:        s.Release.ID,
			Name:      s.Release.Name,
			Seq:       s.Release.Seq,
			Revision:  s.Release.Revision,
			Accepted:  s.Accepted,
			Rejected:  s.Rejected,
			Emissions: s.Emissions,
		}
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}
	writeHistoryText(cmd.OutOrStdout(), entries)
	return nil
}

func runEmissionQuery(opts *HistoryOptions, cmd *cobra.Command, st *store.Store, formatter *OutputFormatter) error {
	var filters []store.Predicate
	if opts.Target != "" {
		filters = append(filters, store.ByTarget(opts.Target))
	}
	if opts.Status != "" {
		status := ir.EmissionStatus(opts.Status)
		if status != ir.StatusAccepted && status != ir.StatusRejected {
			msg := fmt.Sprintf("invalid status %q (must be accepted or rejected)", opts.Status)
			_ = formatter.Error(ErrCodeGeneric, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		filters = append(filters, store.ByStatus(status))
	}

	emissions, err := st.QueryEmissions(commandContext(cmd), store.EmissionQuery{
		Filter: store.And{Predicates: filters},
		Limit:  opts.Limit,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to read ledger", err)
	}
	formatter.VerboseLog("Matched %d emission(s)", len(emissions))

	if opts.Format == "json" {
		return formatter.Success(emissions)
	}
	w := cmd.OutOrStdout()
	if len(emissions) == 0 {
		fmt.Fprintln(w, "No matching emissions.")
		return nil
	}
	for _, em := range emissions {
		writeEmissionLine(w, "", em)
		fmt.Fprintf(w, "    release %s\n", em.ReleaseID)
	}
	return nil
}

func writeEmissionLine(w io.Writer, indent string, em ir.EmissionRecord) {
	mark := "✓"
	if em.Status != ir.StatusAccepted {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s%s %s %s\n", indent, mark, em.Target, em.Digest)
	for _, r := range em.Reasons {
		fmt.Fprintf(w, "%s    %s: %s: %s\n", indent, r.Subject, r.Code, r.Message)
	}
}

func writeHistoryText(w io.Writer, entries []HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No releases recorded.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "#%d %s %s\n", e.Seq, e.Name, e.ID)
		if e.Revision != "" {
			fmt.Fprintf(w, "  revision %s\n", e.Revision)
		}
		for _, em := range e.Emissions {
			writeEmissionLine(w, "  ", em)
		}
	}
}
