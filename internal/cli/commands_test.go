package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sobootstrap/internal/emit"
	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// execute runs cmd with args and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func decodeResponse(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

func renderDefault(t *testing.T, target string, s ir.Settings) *emit.Emission {
	t.Helper()
	a, err := emit.Lookup(target)
	require.NoError(t, err)
	e, err := a.Emit(registry.Default(), registry.DefaultTypes(), s)
	require.NoError(t, err)
	return e
}

func TestOpsText(t *testing.T) {
	out, _, err := execute(t, NewOpsCommand(&RootOptions{Format: "text"}), "")
	require.NoError(t, err)

	assert.Contains(t, out, "CODE")
	for _, d := range registry.Default().All() {
		assert.Contains(t, out, d.Name())
	}
	assert.Contains(t, out, "(...rest)")
	assert.Contains(t, out, "throws_invalid_operation")
	assert.Contains(t, out, "contract ")
	assert.Contains(t, out, "[javascript python]")
}

func TestOpsJSON(t *testing.T) {
	out, _, err := execute(t, NewOpsCommand(&RootOptions{Format: "json"}), "")
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, data["operators"], registry.Default().Len())
	assert.Len(t, data["types"], 3)

	digest, err := registry.ContractDigest(registry.Default(), registry.DefaultTypes())
	require.NoError(t, err)
	assert.Equal(t, digest, data["contract_digest"])
}

func TestEmitWritesSourceToStdout(t *testing.T) {
	out, _, err := execute(t, NewEmitCommand(&RootOptions{Format: "text"}), "", "python", "--indent", "4")
	require.NoError(t, err)

	want := renderDefault(t, "python", ir.Settings{Indent: 4, Prettify: true})
	assert.Equal(t, string(want.Source), out)
}

func TestEmitToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.js")

	out, _, err := execute(t, NewEmitCommand(&RootOptions{Format: "text"}), "",
		"javascript", "--prettify=false", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote javascript bootstrap to "+path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	want := renderDefault(t, "javascript", ir.Settings{Indent: 2, Prettify: false})
	assert.Equal(t, want.Source, written)
}

func TestEmitJSON(t *testing.T) {
	out, _, err := execute(t, NewEmitCommand(&RootOptions{Format: "json"}), "", "javascript")
	require.NoError(t, err)

	want := renderDefault(t, "javascript", ir.DefaultSettings())
	digest, err := want.Digest()
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	assert.Equal(t, "javascript", data["target"])
	assert.Equal(t, digest, data["digest"])
	assert.Equal(t, string(want.Source), data["source"])
	assert.Len(t, data["primitives"], len(want.Primitives))
}

func TestEmitUnknownTarget(t *testing.T) {
	out, _, err := execute(t, NewEmitCommand(&RootOptions{Format: "text"}), "", "cobol")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E102]")
}

func TestEmitRenderError(t *testing.T) {
	out, _, err := execute(t, NewEmitCommand(&RootOptions{Format: "text"}), "", "python", "--indent", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E302]")
}

func TestValidateAllTargets(t *testing.T) {
	out, _, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "")
	require.NoError(t, err)
	assert.Equal(t, "✓ javascript conformant\n✓ python conformant\n", out)
}

func TestValidateJSON(t *testing.T) {
	out, _, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), "", "python", "--prettify=false")
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	assert.Equal(t, true, data["valid"])
	reports := data["reports"].([]any)
	require.Len(t, reports, 1)
	assert.Equal(t, "conformant", reports[0].(map[string]any)["state"])
}

func TestValidateFileNonConformant(t *testing.T) {
	e := renderDefault(t, "javascript", ir.DefaultSettings())
	broken := strings.Replace(string(e.Source), "a.reduceRight(", "a.reduce(", 1)
	path := filepath.Join(t.TempDir(), "bootstrap.js")
	require.NoError(t, os.WriteFile(path, []byte(broken), 0644))

	out, _, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "", "javascript", "--file", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ javascript non-conformant")
	assert.Contains(t, out, "POW: fold_direction")
}

func TestValidateFileNeedsOneTarget(t *testing.T) {
	_, _, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "", "--file", "x.js")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateMissingFile(t *testing.T) {
	out, _, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "",
		"python", "--file", filepath.Join(t.TempDir(), "missing.py"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateUnknownTarget(t *testing.T) {
	out, _, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "", "cobol")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E102]")
}

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"pow folds right", []string{"POW", "2", "3", "2"}, "512\n"},
		{"mul identity", []string{"MUL"}, "1\n"},
		{"symbol", []string{"^", "2", "10"}, "1024\n"},
		{"concatenation", []string{"+", `"1"`, "2"}, "12\n"},
		{"cast", []string{"CAST", "3.9", ":int"}, "3\n"},
		{"comparison", []string{"lt", "a", "b"}, "true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvalPromptsForOperands(t *testing.T) {
	out, errOut, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), "4\n5\n", "MUL", "?", "?")
	require.NoError(t, err)
	assert.Equal(t, "20\n", out)
	assert.Equal(t, "MUL operand 0? MUL operand 1? ", errOut)
}

func TestEvalJSON(t *testing.T) {
	out, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "json"}), "", "CAST", "7", ":string")
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	assert.Equal(t, "CAST", data["op"])
	assert.Equal(t, "7", data["value"])
	assert.Equal(t, "string", data["kind"])
}

func TestEvalFaults(t *testing.T) {
	t.Run("invalid raises", func(t *testing.T) {
		out, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), "", "INVALID")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "Error [E304]")
		assert.Contains(t, out, "INVALID_OPERATION")
	})

	t.Run("comparison arity", func(t *testing.T) {
		out, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), "", "GE", "1")
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "ARITY_MISMATCH")
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, _, err := execute(t, NewEvalCommand(&RootOptions{Format: "text"}), "", "XOR", "1", "2")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func writeProgram(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const areaProgram = `
name: area
steps:
  - op: CAST
    operands: ["12.5", {type: float}]
  - op: POW
    operands: [{ref: 0}, 2]
  - op: ADD
    operands: ["area=", {ref: 1}]
`

func TestRunProgram(t *testing.T) {
	path := writeProgram(t, areaProgram)

	out, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "", path)
	require.NoError(t, err)
	assert.Equal(t, "area=156.25\n", out)
}

func TestRunProgramSteps(t *testing.T) {
	path := writeProgram(t, areaProgram)

	out, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "", path, "--steps")
	require.NoError(t, err)
	assert.Equal(t, "$0 CAST = 12.5\n$1 POW = 156.25\n$2 ADD = area=156.25\n", out)
}

func TestRunProgramJSON(t *testing.T) {
	path := writeProgram(t, areaProgram)

	out, _, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}), "", path)
	require.NoError(t, err)

	_, data := decodeResponse(t, out)
	assert.Equal(t, "area", data["program"])
	assert.Equal(t, []any{12.5, 156.25, "area=156.25"}, data["results"])
}

func TestRunProgramVerboseWarnings(t *testing.T) {
	path := writeProgram(t, `
name: unused
steps:
  - op: MUL
    operands: [2, 3]
  - op: ADD
    operands: [1, 1]
`)

	_, errOut, err := execute(t, NewRunCommand(&RootOptions{Format: "text", Verbose: true}), "", path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "warning: step 0")
}

func TestRunProgramInvalid(t *testing.T) {
	path := writeProgram(t, `
name: bad
steps:
  - op: GT
    operands: [1]
  - op: ADD
    operands: [{ref: 3}, 1]
`)

	out, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "2 validation error(s)")
	assert.Contains(t, out, "[E202]")
	assert.Contains(t, out, "[E204]")
}

func TestRunProgramRaises(t *testing.T) {
	path := writeProgram(t, `
name: fault
steps:
  - op: ADD
    operands: [1, 2]
  - op: INVALID
    operands: []
`)

	out, _, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}), "", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, _ := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E304", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "step 1 (INVALID)")
}

func TestRunProgramMissingFile(t *testing.T) {
	_, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
