package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/roach88/sobootstrap/internal/engine"
	"github.com/roach88/sobootstrap/internal/evaluator"
	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
	"github.com/roach88/sobootstrap/internal/store"
	"github.com/roach88/sobootstrap/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and build IDs.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	eval   *evaluator.Evaluator
	clock  *testutil.DeterministicClock
}

// scenarioBuildIDs numbers a scenario's releases: "<name>-1", "<name>-2".
// Each assertion records its own release, so IDs must not repeat.
type scenarioBuildIDs struct {
	name string
	n    int
}

func (g *scenarioBuildIDs) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.name, g.n)
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory ledger
// 2. Evaluate steps in order, comparing against expectations
// 3. Run each assertion as its own release
// 4. Return result with pass/fail, trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock()
	ids := &scenarioBuildIDs{name: scenario.Name}

	h := &Harness{
		store: st,
		engine: engine.New(st,
			engine.WithBuildIDs(ids),
			engine.WithClock(clock),
			engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
		),
		eval:  evaluator.Default(),
		clock: clock,
	}

	result := NewResult()
	h.executeSteps(scenario.Steps, result)

	for i, a := range scenario.Assertions {
		if err := h.checkAssertion(ctx, a, result); err != nil {
			return nil, fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return result, nil
}

// executeSteps evaluates every step. A failed step does not stop the
// scenario; later refs to it are reported as errors.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	values := make([]ir.Value, len(steps))

	for i, step := range steps {
		ev := TraceEvent{
			Step: i,
			Op:   step.Op.String(),
			Args: make([]string, len(step.Args)),
		}

		operands := make([]ir.Value, len(step.Args))
		var refErr error
		for j, arg := range step.Args {
			ev.Args[j] = argText(arg)
			switch arg.Kind() {
			case "ref":
				if values[*arg.Ref] == nil {
					refErr = fmt.Errorf("steps[%d].args[%d]: ref %d names a failed step", i, j, *arg.Ref)
					continue
				}
				operands[j] = values[*arg.Ref]
			case "type":
				operands[j] = arg.Type
			default:
				operands[j] = arg.Literal
			}
		}
		if refErr != nil {
			ev.Kind, ev.Value, ev.Seq = "error", "BAD_REFERENCE", h.clock.Next()
			result.AddStepTrace(ev)
			result.AddError(refErr.Error())
			continue
		}

		got, err := h.eval.Eval(step.Op, operands...)
		ev.Seq = h.clock.Next()
		if err != nil {
			ev.Kind, ev.Value = "error", errorKind(err)
		} else {
			values[i] = got
			ev.Kind, ev.Value = valueText(got)
		}
		result.AddStepTrace(ev)

		if msg := mismatch(step, got, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Op, msg))
		}
	}
}

// mismatch compares a step's outcome to its expectation and describes any
// difference. Empty means the step passed.
func mismatch(step Step, got ir.Value, err error) string {
	if step.Expect.Error != "" {
		if err == nil {
			_, text := valueText(got)
			return fmt.Sprintf("expected error %s, got value %s", step.Expect.Error, text)
		}
		if kind := errorKind(err); kind != step.Expect.Error {
			return fmt.Sprintf("expected error %s, got %s (%v)", step.Expect.Error, kind, err)
		}
		return ""
	}

	want, convErr := ir.FromNative(step.Expect.Value)
	if convErr != nil {
		return fmt.Sprintf("bad expected value: %v", convErr)
	}
	if err != nil {
		return fmt.Sprintf("expected value, got error %v", err)
	}
	if !sameValue(want, got) {
		_, w := valueText(want)
		_, g := valueText(got)
		return fmt.Sprintf("expected %s, got %s", w, g)
	}
	return ""
}

// sameValue is strict equality where NaN matches NaN.
func sameValue(a, b ir.Value) bool {
	an, aok := a.(ir.Number)
	bn, bok := b.(ir.Number)
	if aok && bok && math.IsNaN(float64(an)) && math.IsNaN(float64(bn)) {
		return true
	}
	return a == b
}

func errorKind(err error) string {
	var ce *registry.ContractError
	if errors.As(err, &ce) {
		return string(ce.Kind)
	}
	return "ERROR"
}

func valueText(v ir.Value) (kind, text string) {
	switch val := v.(type) {
	case ir.Number:
		return "number", ir.FormatNumber(float64(val))
	case ir.String:
		return "string", strconv.Quote(string(val))
	case ir.Bool:
		return "bool", strconv.FormatBool(bool(val))
	case ir.TypeTag:
		return "type", string(val)
	default:
		return "unknown", fmt.Sprintf("%v", v)
	}
}

func argText(op ir.Operand) string {
	switch op.Kind() {
	case "ref":
		return fmt.Sprintf("$%d", *op.Ref)
	case "type":
		return ":" + string(op.Type)
	case "literal":
		_, text := valueText(op.Literal)
		return text
	default:
		return "?"
	}
}

// checkAssertion records one release for the assertion's targets and
// checks the ledger's verdict.
func (h *Harness) checkAssertion(ctx context.Context, a Assertion, result *Result) error {
	m := &ir.BuildManifest{Name: a.Type}
	for _, target := range a.Targets {
		m.Targets = append(m.Targets, ir.TargetConfig{Target: target, Settings: a.Settings()})
	}

	res, err := h.engine.Release(ctx, m)
	if err != nil {
		return err
	}
	result.Releases = append(result.Releases, res.Release.ID)

	emissions, err := h.store.ReadEmissions(ctx, res.Release.ID)
	if err != nil {
		return err
	}
	byTarget := make(map[string]ir.EmissionRecord, len(emissions))
	for _, e := range emissions {
		byTarget[e.Target] = e
	}

	for _, target := range a.Targets {
		rec, ok := byTarget[target]
		if !ok {
			result.AddError(fmt.Sprintf("%s: %s not recorded", a.Type, target))
			continue
		}
		switch a.Type {
		case AssertConformant:
			if rec.Status != ir.StatusAccepted {
				result.AddError(fmt.Sprintf("conformant: %s rejected: %v", target, rec.Reasons))
			}
		case AssertExcluded:
			if rec.Status != ir.StatusRejected {
				result.AddError(fmt.Sprintf("excluded: %s was accepted", target))
				continue
			}
			if !hasReason(rec.Reasons, a.Reason) {
				result.AddError(fmt.Sprintf("excluded: %s rejected without reason %s: %v", target, a.Reason, rec.Reasons))
			}
		}
	}
	return nil
}

func hasReason(reasons []ir.ReasonRecord, code string) bool {
	for _, r := range reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}
