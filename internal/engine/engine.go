package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/sobootstrap/internal/conformance"
	"github.com/roach88/sobootstrap/internal/emit"
	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
	"github.com/roach88/sobootstrap/internal/store"
)

// Sequencer stamps releases with logical time.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type Sequencer interface {
	Next() int64
}

// Reason codes for targets excluded before conformance could judge them.
const (
	ReasonRenderError = "render_error"
	ReasonCheckFailed = "check_failed"
)

// Engine builds releases: it emits every target's bootstrap, validates each
// against the contract and records the outcome.
//
// Thread-safety model:
//   - Release(): safe from any goroutine; each call is one build
//   - Targets within a release run concurrently and share only the
//     immutable registry, type table and adapter set
//
// INVARIANTS:
//   - Results are joined in manifest target order, never completion order
//   - A non-conformant target never fails the release; only the target is
//     excluded
type Engine struct {
	store    *store.Store // nil: results are not recorded
	reg      *registry.Registry
	types    *registry.TypeTable
	ids      BuildIDGenerator
	clock    Sequencer
	logger   *slog.Logger
	revision string // directory whose git HEAD stamps releases; "" disables
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithContract replaces the default registry and type table.
func WithContract(reg *registry.Registry, types *registry.TypeTable) EngineOption {
	return func(e *Engine) {
		e.reg = reg
		e.types = types
	}
}

// WithBuildIDs sets the build ID generator. Default: UUIDv7Generator.
func WithBuildIDs(g BuildIDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the release sequencer. Default: a Clock at 0; use
// ResumeClock to continue an existing ledger.
func WithClock(c Sequencer) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRevisionFrom stamps each release with the HEAD commit of the git
// repository containing dir.
func WithRevisionFrom(dir string) EngineOption {
	return func(e *Engine) {
		e.revision = dir
	}
}

// New creates an Engine recording into s. A nil store gives a dry-run
// engine that emits and validates without recording.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  s,
		reg:    registry.Default(),
		types:  registry.DefaultTypes(),
		ids:    UUIDv7Generator{},
		clock:  NewClock(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// TargetResult is one target's outcome within a release.
type TargetResult struct {
	Target   string
	Settings ir.Settings
	Emission *emit.Emission      // nil if rendering failed
	Report   *conformance.Report // nil if rendering or checking failed
	Err      error               // render or check failure; nil otherwise
}

// Accepted reports whether the target passed every conformance check.
func (r TargetResult) Accepted() bool {
	return r.Err == nil && r.Report != nil && r.Report.Conformant()
}

// Exclusion returns why the target was excluded, or nil if it was accepted.
// Conformance failures come back as *conformance.NonConformantError.
func (r TargetResult) Exclusion() error {
	if r.Err != nil {
		return r.Err
	}
	if r.Report == nil {
		return fmt.Errorf("%s: not checked", r.Target)
	}
	return r.Report.Err()
}

// Result is the outcome of one release.
type Result struct {
	Release ir.Release
	Targets []TargetResult
}

// Accepted returns the accepted targets in manifest order.
func (r *Result) Accepted() []string {
	out := []string{}
	for _, t := range r.Targets {
		if t.Accepted() {
			out = append(out, t.Target)
		}
	}
	return out
}

// Rejected returns the excluded targets in manifest order.
func (r *Result) Rejected() []string {
	out := []string{}
	for _, t := range r.Targets {
		if !t.Accepted() {
			out = append(out, t.Target)
		}
	}
	return out
}

// Excluded joins every exclusion into one error, or returns nil when all
// targets were accepted.
func (r *Result) Excluded() error {
	var errs []error
	for _, t := range r.Targets {
		if err := t.Exclusion(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Release builds every target in m. Unknown or duplicate targets fail the
// whole release before anything is emitted. Each target is then emitted
// and validated in its own goroutine; non-conformant targets are excluded
// with their reasons while the others proceed.
//
// The returned Result is recorded in the store (if any) as one atomic
// ledger entry. Cancellation before recording discards the release.
func (e *Engine) Release(ctx context.Context, m *ir.BuildManifest) (*Result, error) {
	if len(m.Targets) == 0 {
		return nil, &ReleaseError{Code: ErrCodeNoTargets, Message: fmt.Sprintf("manifest %q names no targets", m.Name)}
	}

	adapters := make([]emit.Adapter, len(m.Targets))
	seen := make(map[string]bool, len(m.Targets))
	for i, tc := range m.Targets {
		if seen[tc.Target] {
			return nil, &ReleaseError{Code: ErrCodeDuplicateTarget, Message: "target listed twice", Target: tc.Target}
		}
		seen[tc.Target] = true

		a, err := emit.Lookup(tc.Target)
		if err != nil {
			return nil, NewUnknownTargetError(tc.Target, emit.Targets())
		}
		adapters[i] = a
	}

	contract, err := registry.ContractDigest(e.reg, e.types)
	if err != nil {
		return nil, fmt.Errorf("release: %w", err)
	}

	rel := ir.Release{
		ID:             e.ids.Generate(),
		Name:           m.Name,
		Seq:            e.clock.Next(),
		ContractDigest: contract,
		ToolVersion:    ir.ToolVersion,
		IRVersion:      ir.ContractVersion,
	}
	if e.revision != "" {
		rev, err := GitRevision(e.revision)
		if err != nil {
			// Revision stamping is informational; the release still proceeds.
			e.logger.Warn("revision lookup failed", "build_id", rel.ID, "dir", e.revision, "error", err)
		}
		rel.Revision = rev
	}

	e.logger.Info("release starting",
		"build_id", rel.ID,
		"name", rel.Name,
		"seq", rel.Seq,
		"targets", len(m.Targets),
	)

	results := make([]TargetResult, len(m.Targets))
	var wg sync.WaitGroup
	for i, tc := range m.Targets {
		wg.Add(1)
		go func(i int, a emit.Adapter, tc ir.TargetConfig) {
			defer wg.Done()
			results[i] = e.buildTarget(ctx, a, tc)
		}(i, adapters[i], tc)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		e.logger.Warn("release cancelled", "build_id", rel.ID, "error", err)
		return nil, err
	}

	res := &Result{Release: rel, Targets: results}
	for _, t := range results {
		if t.Accepted() {
			e.logger.Info("target accepted", "build_id", rel.ID, "target", t.Target, "digest", t.Report.EmissionDigest)
		} else {
			e.logger.Warn("target excluded", "build_id", rel.ID, "target", t.Target, "error", t.Exclusion())
		}
	}

	if e.store != nil {
		if _, err := e.store.WriteRelease(ctx, rel, records(results)); err != nil {
			return res, &ReleaseError{Code: ErrCodeStoreFailed, Message: err.Error(), BuildID: rel.ID}
		}
	}

	e.logger.Info("release finished",
		"build_id", rel.ID,
		"accepted", len(res.Accepted()),
		"rejected", len(res.Rejected()),
	)
	return res, nil
}

// buildTarget renders and validates one target. It touches only its own
// emission and validator.
func (e *Engine) buildTarget(ctx context.Context, a emit.Adapter, tc ir.TargetConfig) TargetResult {
	r := TargetResult{Target: tc.Target, Settings: tc.Settings}

	em, err := a.Emit(e.reg, e.types, tc.Settings)
	if err != nil {
		r.Err = err
		return r
	}
	r.Emission = em

	inspector, err := conformance.InspectorFor(tc.Target)
	if err != nil {
		r.Err = err
		return r
	}
	report, err := conformance.NewValidator(e.reg, e.types, inspector).Validate(ctx, em)
	if err != nil {
		r.Err = err
		return r
	}
	r.Report = report
	return r
}

// records converts target results to ledger rows.
func records(results []TargetResult) []ir.EmissionRecord {
	out := make([]ir.EmissionRecord, 0, len(results))
	for _, t := range results {
		rec := ir.EmissionRecord{
			Target:   t.Target,
			Status:   ir.StatusRejected,
			Settings: t.Settings,
		}
		if t.Emission != nil {
			rec.Source = string(t.Emission.Source)
		}

		switch {
		case t.Err != nil:
			rec.Reasons = []ir.ReasonRecord{exclusionReason(t.Err)}
		case t.Report != nil:
			rec.Digest = t.Report.EmissionDigest
			if t.Report.Conformant() {
				rec.Status = ir.StatusAccepted
			}
			for _, r := range t.Report.Reasons {
				rec.Reasons = append(rec.Reasons, ir.ReasonRecord{
					Subject: r.Subject,
					Code:    string(r.Code),
					Message: r.Message,
				})
			}
		}
		out = append(out, rec)
	}
	return out
}

func exclusionReason(err error) ir.ReasonRecord {
	var re *emit.RenderError
	if errors.As(err, &re) {
		return ir.ReasonRecord{Subject: re.Subject, Code: ReasonRenderError, Message: re.Reason}
	}
	return ir.ReasonRecord{Subject: "bootstrap", Code: ReasonCheckFailed, Message: err.Error()}
}
