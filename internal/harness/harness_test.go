package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sobootstrap/internal/ir"
)

func TestRun_FoldsScenario(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/folds.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Trace, 12)
	assert.Equal(t, []string{"folds-1", "folds-2", "folds-3"}, result.Releases)
}

func TestRunWithGolden_Folds(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/folds.yaml")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestAssertBootstrapGolden(t *testing.T) {
	require.NoError(t, AssertBootstrapGolden(t, "python", ir.Settings{Indent: 4, Prettify: true}, "bootstrap_python"))
	require.NoError(t, AssertBootstrapGolden(t, "javascript", ir.Settings{Indent: 0, Prettify: false}, "bootstrap_javascript_compact"))

	assert.Error(t, AssertBootstrapGolden(t, "cobol", ir.DefaultSettings(), "unused"))
	assert.Error(t, AssertBootstrapGolden(t, "python", ir.Settings{Indent: 0}, "unused"))
}

func TestRun_ReportsMismatches(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: mismatches
description: "Every kind of failed expectation"
steps:
  - op: MUL
    args: [2, 3]
    expect: { value: "6" }
  - op: SUB
    args: [5, 1]
    expect: { error: ARITY_MISMATCH }
  - op: LT
    args: [1]
    expect: { value: false }
  - op: INVALID
    expect: { error: ARITY_MISMATCH }
  - op: ADD
    args: [{ ref: 3 }, 1]
    expect: { value: 1 }
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], `expected "6", got 6`)
	assert.Contains(t, result.Errors[1], "expected error ARITY_MISMATCH, got value 4")
	assert.Contains(t, result.Errors[2], "expected value, got error")
	assert.Contains(t, result.Errors[3], "got INVALID_OPERATION")
	assert.Contains(t, result.Errors[4], "names a failed step")

	assert.Equal(t, "BAD_REFERENCE", result.Trace[4].Value)
}

func TestRun_AssertionFailures(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_verdicts
description: "Assertions that do not hold"
assertions:
  - type: excluded
    targets: [javascript]
    reason: render_error
  - type: conformant
    targets: [python]
    indent: 0
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "javascript was accepted")
	assert.Contains(t, result.Errors[1], "python rejected")
}

func TestRun_UnknownTargetFails(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: unknown
description: "No adapter"
assertions:
  - type: conformant
    targets: [cobol]
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_TARGET")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "description: d\nsteps: [{op: MUL, expect: {value: 1}}]", "name is required"},
		{"missing description", "name: n\nsteps: [{op: MUL, expect: {value: 1}}]", "description is required"},
		{"empty", "name: n\ndescription: d", "steps or assertions"},
		{"no expectation", "name: n\ndescription: d\nsteps: [{op: MUL}]", "exactly one of value or error"},
		{"both expectations", "name: n\ndescription: d\nsteps: [{op: MUL, expect: {value: 1, error: X}}]", "exactly one of value or error"},
		{"forward ref", "name: n\ndescription: d\nsteps: [{op: MUL, args: [{ref: 0}], expect: {value: 1}}]", "does not name an earlier step"},
		{"unknown field", "name: n\ndescription: d\nstep: []", "failed to parse YAML"},
		{"unknown op", "name: n\ndescription: d\nsteps: [{op: XOR, expect: {value: 1}}]", "failed to parse YAML"},
		{"assertion type", "name: n\ndescription: d\nassertions: [{type: fast, targets: [python]}]", "unknown assertion type"},
		{"assertion targets", "name: n\ndescription: d\nassertions: [{type: conformant}]", "targets list is required"},
		{"excluded reason", "name: n\ndescription: d\nassertions: [{type: excluded, targets: [python]}]", "reason is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestAssertionSettings(t *testing.T) {
	indent, prettify := 0, false
	a := Assertion{Indent: &indent, Prettify: &prettify}
	assert.Equal(t, ir.Settings{Indent: 0, Prettify: false}, a.Settings())
	assert.Equal(t, ir.DefaultSettings(), Assertion{}.Settings())
}
