package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sobootstrap/internal/evaluator"
	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// call is one invocation in a runtime table. Operands are ir.Values or
// nested calls.
type call struct {
	code ir.OperatorCode
	args []any
}

func op(code ir.OperatorCode, args ...any) call { return call{code: code, args: args} }

func num(f float64) ir.Number { return ir.Number(f) }

func str(s string) ir.String { return ir.String(s) }

func castTo(v any, tag ir.TypeTag) call { return op(ir.OpCast, v, tag) }

const failed = "!error"

// runtimeCalls covers every code, casts of edge values, mixed-type ADD,
// string ordering and overflow.
var runtimeCalls = []call{
	op(ir.OpInvalid),

	op(ir.OpPow, num(2), num(3), num(2)),
	op(ir.OpPow, num(2)),
	op(ir.OpPow, num(-10), num(401)),
	op(ir.OpPow, num(10), num(400)),
	op(ir.OpPow, num(0), num(-1)),
	op(ir.OpPow, num(math.Copysign(0, -1)), num(-1)),
	op(ir.OpPow, num(math.Copysign(0, -1)), num(-2)),
	op(ir.OpPow, num(-8), num(1.0/3)),
	op(ir.OpPow, num(1), num(math.Inf(1))),
	op(ir.OpPow, num(2), num(0.5)),
	op(ir.OpPow, num(10), num(-400)),
	op(ir.OpPow, str("2"), str("10")),

	op(ir.OpMul),
	op(ir.OpMul, num(4)),
	op(ir.OpMul, num(2), num(3), num(4)),
	op(ir.OpMul, num(1e200), num(-1e200)),
	op(ir.OpMul, str("3"), ir.Bool(true)),
	op(ir.OpMul, num(math.Inf(1)), num(0)),

	op(ir.OpDiv, num(5)),
	op(ir.OpDiv, num(100), num(2), num(5)),
	op(ir.OpDiv, num(1), num(3)),
	op(ir.OpDiv, num(1), num(0)),
	op(ir.OpDiv, num(-1), num(0)),
	op(ir.OpDiv, num(1), num(math.Copysign(0, -1))),
	op(ir.OpDiv, num(0), num(0)),

	op(ir.OpMod, num(7), num(3)),
	op(ir.OpMod, num(-7), num(3)),
	op(ir.OpMod, num(5.5), num(2)),
	op(ir.OpMod, num(5), num(0)),
	op(ir.OpMod, num(5), num(math.Inf(-1))),
	op(ir.OpMod, num(math.Inf(1)), num(2)),

	op(ir.OpAdd, num(1), num(2), num(3)),
	op(ir.OpAdd, num(0.1), num(0.2)),
	op(ir.OpAdd, num(1), num(2), str("x")),
	op(ir.OpAdd, str("x"), num(1), num(2)),
	op(ir.OpAdd, str("n="), num(1e-7)),
	op(ir.OpAdd, str("n="), num(0.00001)),
	op(ir.OpAdd, str("b="), ir.Bool(true)),
	op(ir.OpAdd, ir.Bool(true), num(1)),

	op(ir.OpSub, num(5)),
	op(ir.OpSub, num(10), num(3), num(2)),
	op(ir.OpSub, str("10"), str("4")),
	op(ir.OpSub, str("x"), num(1)),

	op(ir.OpGE, num(2), num(2)),
	op(ir.OpGE, num(math.NaN()), num(1)),
	op(ir.OpLE, str("a"), str("b")),
	op(ir.OpGT, str("b"), str("a")),
	op(ir.OpGT, str("10"), num(9)),
	op(ir.OpLT, str("10"), str("9")),
	op(ir.OpLT, str("B"), str("a")),
	op(ir.OpLT, str("\uff61"), str("\U0001F600")),
	op(ir.OpEQ, str("1"), num(1)),
	op(ir.OpEQ, ir.Bool(true), str("1")),
	op(ir.OpEQ, num(math.NaN()), num(math.NaN())),
	op(ir.OpEQ, castTo(str("a"), ir.TypeString), castTo(str("a"), ir.TypeString)),
	op(ir.OpNE, str("a"), str("b")),
	op(ir.OpNE, castTo(num(1), ir.TypeString), str("1")),

	castTo(num(0.00001), ir.TypeString),
	castTo(num(1e-7), ir.TypeString),
	castTo(num(0.000001), ir.TypeString),
	castTo(num(1e21), ir.TypeString),
	castTo(num(1e20), ir.TypeString),
	castTo(num(123456789012345680000), ir.TypeString),
	castTo(num(-1.5e-10), ir.TypeString),
	castTo(num(5e-324), ir.TypeString),
	castTo(num(math.MaxFloat64), ir.TypeString),
	castTo(num(math.Copysign(0, -1)), ir.TypeString),
	castTo(num(math.NaN()), ir.TypeString),
	castTo(ir.Bool(false), ir.TypeString),

	castTo(num(2.5), ir.TypeInt),
	castTo(num(-2.5), ir.TypeInt),
	castTo(num(4294967297), ir.TypeInt),
	castTo(num(2147483648), ir.TypeInt),
	castTo(num(math.Inf(1)), ir.TypeInt),
	castTo(str("0x10"), ir.TypeInt),
	castTo(str(""), ir.TypeInt),

	castTo(str(" 12 "), ir.TypeFloat),
	castTo(str("\ufeff7"), ir.TypeFloat),
	castTo(str("\u00855"), ir.TypeFloat),
	castTo(str("\u0663"), ir.TypeFloat),
	castTo(str("1."), ir.TypeFloat),
	castTo(str(".5"), ir.TypeFloat),
	castTo(str("1e400"), ir.TypeFloat),
	castTo(str("0x"+strings.Repeat("f", 20)), ir.TypeFloat),
	castTo(str("0x"+strings.Repeat("f", 300)), ir.TypeFloat),
	castTo(str("0b12"), ir.TypeFloat),
	castTo(str("-0x10"), ir.TypeFloat),
	castTo(str("1_000"), ir.TypeFloat),
	castTo(str("Infinity"), ir.TypeFloat),
	castTo(str("infinity"), ir.TypeFloat),
}

// reference evaluates c with the Go evaluator and returns the string form
// the bootstrap is expected to print.
func reference(t *testing.T, c call) string {
	t.Helper()
	v, err := referenceValue(c)
	if err != nil {
		return failed
	}
	return registry.ToString(v)
}

func referenceValue(c call) (ir.Value, error) {
	operands := make([]ir.Value, len(c.args))
	for i, a := range c.args {
		switch a := a.(type) {
		case call:
			v, err := referenceValue(a)
			if err != nil {
				return nil, err
			}
			operands[i] = v
		case ir.Value:
			operands[i] = a
		}
	}
	return evaluator.Eval(c.code, operands...)
}

type runtimeTarget struct {
	target  string
	binary  string
	ext     string
	literal func(v ir.Value) string
	// driver wraps the call expressions in a program printing one JSON
	// string per line, or the failure marker when a call raises.
	driver func(exprs []string) string
}

func jsLiteral(v ir.Value) string {
	switch v := v.(type) {
	case ir.Number:
		f := float64(v)
		if f == 0 && math.Signbit(f) {
			return "-0"
		}
		return ir.FormatNumber(f)
	case ir.Bool:
		return fmt.Sprint(bool(v))
	case ir.String:
		b, _ := json.Marshal(string(v))
		return string(b)
	case ir.TypeTag:
		return TypeSymbol(v)
	}
	return "undefined"
}

func pyLiteral(v ir.Value) string {
	switch v := v.(type) {
	case ir.Number:
		f := float64(v)
		switch {
		case math.IsNaN(f):
			return "math.nan"
		case math.IsInf(f, 1):
			return "math.inf"
		case math.IsInf(f, -1):
			return "-math.inf"
		case f == 0 && math.Signbit(f):
			return "-0.0"
		}
		return ir.FormatNumber(f)
	case ir.Bool:
		if v {
			return "True"
		}
		return "False"
	case ir.String:
		b, _ := json.Marshal(string(v))
		return string(b)
	case ir.TypeTag:
		return TypeSymbol(v)
	}
	return "None"
}

var runtimeTargets = []runtimeTarget{
	{
		target: "javascript", binary: "node", ext: ".js", literal: jsLiteral,
		driver: func(exprs []string) string {
			var sb strings.Builder
			fmt.Fprintf(&sb, "const _run = f => { try { console.log(JSON.stringify(String(f()))); } catch (e) { console.log(JSON.stringify(%q)); } };\n", failed)
			for _, e := range exprs {
				fmt.Fprintf(&sb, "_run(() => %s);\n", e)
			}
			return sb.String()
		},
	},
	{
		target: "python", binary: "python3", ext: ".py", literal: pyLiteral,
		driver: func(exprs []string) string {
			var sb strings.Builder
			sb.WriteString("import json\n\n")
			sb.WriteString("def _run(f):\n    try:\n        print(json.dumps(_str(f())))\n    except Exception:\n")
			fmt.Fprintf(&sb, "        print(json.dumps(%q))\n\n", failed)
			for _, e := range exprs {
				fmt.Fprintf(&sb, "_run(lambda: %s)\n", e)
			}
			return sb.String()
		},
	},
}

func callExpr(a Adapter, literal func(ir.Value) string, c call) string {
	args := make([]string, len(c.args))
	for i, arg := range c.args {
		switch arg := arg.(type) {
		case call:
			args[i] = callExpr(a, literal, arg)
		case ir.TypeTag:
			args[i] = a.TypeRef(arg)
		case ir.Value:
			args[i] = literal(arg)
		}
	}
	return a.CallExpr(c.code, args...)
}

func TestBootstrapsAgreeWithEvaluator(t *testing.T) {
	for _, rt := range runtimeTargets {
		t.Run(rt.target, func(t *testing.T) {
			bin, err := exec.LookPath(rt.binary)
			if err != nil {
				t.Skipf("%s not installed", rt.binary)
			}

			for _, s := range []ir.Settings{ir.DefaultSettings(), {Indent: 1, Prettify: false}} {
				a, err := Lookup(rt.target)
				require.NoError(t, err)
				e, err := a.Emit(registry.Default(), registry.DefaultTypes(), s)
				require.NoError(t, err)

				exprs := make([]string, len(runtimeCalls))
				for i, c := range runtimeCalls {
					exprs[i] = callExpr(a, rt.literal, c)
				}
				program := string(e.Source) + "\n" + rt.driver(exprs)

				path := filepath.Join(t.TempDir(), "bootstrap"+rt.ext)
				require.NoError(t, os.WriteFile(path, []byte(program), 0644))

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				cmd := exec.CommandContext(ctx, bin, path)
				cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")
				out, err := cmd.Output()
				cancel()
				require.NoError(t, err, "%s run failed", rt.target)

				lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
				require.Len(t, lines, len(runtimeCalls))
				for i, c := range runtimeCalls {
					var got string
					require.NoError(t, json.Unmarshal([]byte(lines[i]), &got), lines[i])
					assert.Equal(t, reference(t, c), got, "%s (indent %d)", exprs[i], s.Indent)
				}
			}
		})
	}
}
