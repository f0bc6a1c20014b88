package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/sobootstrap/internal/engine"
	"github.com/roach88/sobootstrap/internal/store"
)

// ReleaseOptions holds flags for the release command.
type ReleaseOptions struct {
	*RootOptions
	Database string
	DryRun   bool
	OutDir   string
}

// ReleaseSummary is the JSON payload of the release command.
type ReleaseSummary struct {
	Name           string          `json:"name"`
	Seq            int64           `json:"seq"`
	Revision       string          `json:"revision,omitempty"`
	ContractDigest string          `json:"contract_digest"`
	Targets        []TargetSummary `json:"targets"`
	Recorded       bool            `json:"recorded"`
}

// TargetSummary is one target's outcome in a release.
type TargetSummary struct {
	Target   string   `json:"target"`
	Accepted bool     `json:"accepted"`
	Digest   string   `json:"digest,omitempty"`
	Reasons  []string `json:"reasons,omitempty"`
	Output   string   `json:"output,omitempty"`
}

var sourceExtensions = map[string]string{
	"javascript": ".js",
	"python":     ".py",
}

// NewReleaseCommand creates the release command.
func NewReleaseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReleaseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "release <manifest-dir>",
		Short: "Emit, check and record every target of a build manifest",
		Long: `Load the CUE build manifest in manifest-dir, render and check each target
concurrently, and record the outcome in the release ledger. Non-conformant
targets are excluded with their reasons; the others are still released.

Exit codes:
  0 - Every target was accepted
  1 - One or more targets were excluded
  2 - Command error (bad manifest, unknown target, database failure)

Examples:
  soboot release ./release --db soboot.db
  soboot release ./release --db soboot.db --out ./dist
  soboot release ./release --dry-run`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the release ledger (required unless --dry-run)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "check targets without recording the release")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "write accepted bootstraps to this directory")

	return cmd
}

func runRelease(opts *ReleaseOptions, manifestDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Database == "" && !opts.DryRun {
		_ = formatter.Error(ErrCodeGeneric, "--db is required (or pass --dry-run)", nil)
		return NewExitError(ExitCommandError, "--db is required")
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	loaded, err := LoadManifest(manifestDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	logger.Debug("manifest loaded", "dir", manifestDir, "name", loaded.Manifest.Name, "files", loaded.FileCount)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithRevisionFrom(manifestDir),
	}

	var st *store.Store
	if !opts.DryRun {
		logger.Debug("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, storeFailure(err), "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		clock, err := engine.ResumeClock(ctx, st)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to read ledger", err)
		}
		engineOpts = append(engineOpts, engine.WithClock(clock))
	}

	result, err := engine.New(st, engineOpts...).Release(ctx, loaded.Manifest)
	if err != nil {
		return outputReleaseError(formatter, err)
	}

	summary := summarize(result, !opts.DryRun)
	if opts.OutDir != "" {
		if err := writeAccepted(opts.OutDir, result, summary.Targets); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write bootstraps", err)
		}
	}

	if err := formatter.SuccessBuild(result.Release.ID, summary, func(w io.Writer) {
		writeReleaseText(w, result.Release.ID, summary)
	}); err != nil {
		return err
	}

	if excluded := result.Excluded(); excluded != nil {
		return WrapExitError(ExitFailure, "targets excluded", excluded)
	}
	return nil
}

func summarize(result *engine.Result, recorded bool) ReleaseSummary {
	s := ReleaseSummary{
		Name:           result.Release.Name,
		Seq:            result.Release.Seq,
		Revision:       result.Release.Revision,
		ContractDigest: result.Release.ContractDigest,
		Recorded:       recorded,
	}
	for _, t := range result.Targets {
		ts := TargetSummary{Target: t.Target, Accepted: t.Accepted()}
		if t.Report != nil {
			ts.Digest = t.Report.EmissionDigest
			for _, r := range t.Report.Reasons {
				ts.Reasons = append(ts.Reasons, r.String())
			}
		}
		if t.Err != nil {
			ts.Reasons = append(ts.Reasons, t.Err.Error())
		}
		s.Targets = append(s.Targets, ts)
	}
	return s
}

// writeAccepted writes each accepted bootstrap to dir/bootstrap.<ext> under
// a per-target subdirectory and records the path in the summary.
func writeAccepted(dir string, result *engine.Result, targets []TargetSummary) error {
	for i, t := range result.Targets {
		if !t.Accepted() {
			continue
		}
		path := filepath.Join(dir, t.Target, "bootstrap"+sourceExtensions[t.Target])
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, t.Emission.Source, 0o644); err != nil {
			return err
		}
		targets[i].Output = path
	}
	return nil
}

func writeReleaseText(w io.Writer, buildID string, s ReleaseSummary) {
	fmt.Fprintf(w, "release %s (%s, seq %d)\n", s.Name, buildID, s.Seq)
	if s.Revision != "" {
		fmt.Fprintf(w, "  revision %s\n", s.Revision)
	}
	for _, t := range s.Targets {
		if t.Accepted {
			fmt.Fprintf(w, "✓ %s %s\n", t.Target, t.Digest)
			if t.Output != "" {
				fmt.Fprintf(w, "  wrote %s\n", t.Output)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s excluded\n", t.Target)
		for _, r := range t.Reasons {
			fmt.Fprintf(w, "  %s\n", r)
		}
	}
	if !s.Recorded {
		fmt.Fprintln(w, "dry run: release not recorded")
	}
}

func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Error(), nil)
	} else {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	}
	return WrapExitError(ExitCommandError, "failed to load manifest", err)
}

func outputReleaseError(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var re *engine.ReleaseError
	if errors.As(err, &re) {
		switch re.Code {
		case engine.ErrCodeUnknownTarget:
			code = ErrCodeUnknownTarget
		case engine.ErrCodeNoTargets:
			code = ErrCodeNoTargets
		case engine.ErrCodeStoreFailed:
			code = ErrCodeStoreFailed
		}
	}
	if errors.Is(err, context.Canceled) {
		code = ErrCodeGeneric
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "release failed", err)
}
