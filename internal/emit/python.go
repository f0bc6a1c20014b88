package emit

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// The helpers give Python the bootstraps' shared value model: one float
// number type, numeric coercion of strings, division by zero yielding
// infinities and UTF-16 string ordering. _fmt spells numbers the way
// JavaScript's Number::toString does.
const pythonTemplates = `
{{define "prelude"}}
import decimal
import functools
import math
import operator
import re
import types

_NUMERIC = re.compile(r"[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?")
_RADIX = re.compile(r"0([xXoObB])([0-9a-fA-F]+)")
_SPACE = " \t\n\v\f\r\u00a0\u1680\u2000\u2001\u2002\u2003\u2004\u2005\u2006\u2007\u2008\u2009\u200a\u2028\u2029\u202f\u205f\u3000\ufeff"

def _num(v):
	if isinstance(v, bool):
		return 1.0 if v else 0.0
	if isinstance(v, (int, float)):
		return float(v)
	s = str(v).strip(_SPACE)
	if s == "":
		return 0.0
	if s in ("Infinity", "+Infinity"):
		return math.inf
	if s == "-Infinity":
		return -math.inf
	if _NUMERIC.fullmatch(s):
		return float(s)
	m = _RADIX.fullmatch(s)
	if not m:
		return math.nan
	try:
		n = int(m.group(2), {"x": 16, "o": 8, "b": 2}[m.group(1).lower()])
	except ValueError:
		return math.nan
	try:
		return float(n)
	except OverflowError:
		return math.inf

def _fmt(f):
	if math.isnan(f):
		return "NaN"
	if math.isinf(f):
		return "Infinity" if f > 0 else "-Infinity"
	if f == 0:
		return "0"
	t = decimal.Decimal(repr(abs(f))).as_tuple()
	digits = "".join(map(str, t.digits)).rstrip("0")
	k, n = len(digits), len(t.digits) + t.exponent
	if k <= n <= 21:
		out = digits + "0" * (n - k)
	elif 0 < n <= 21:
		out = digits[:n] + "." + digits[n:]
	elif -6 < n <= 0:
		out = "0." + "0" * -n + digits
	else:
		e = n - 1
		out = (digits if k == 1 else digits[0] + "." + digits[1:]) + "e" + ("+" if e >= 0 else "-") + str(abs(e))
	return ("-" if f < 0 else "") + out

def _str(v):
	if isinstance(v, bool):
		return "true" if v else "false"
	if isinstance(v, (int, float)):
		return _fmt(float(v))
	return str(v)

def _i32(x):
	if math.isnan(x) or math.isinf(x):
		return 0.0
	return float((int(x) + 2**31) % 2**32 - 2**31)

def _add(l, r):
	if isinstance(l, str) or isinstance(r, str):
		return _str(l) + _str(r)
	return _num(l) + _num(r)

def _div(l, r):
	x, y = _num(l), _num(r)
	if y == 0:
		if x == 0 or math.isnan(x):
			return math.nan
		return math.copysign(math.inf, x) * math.copysign(1.0, y)
	return x / y

def _mod(l, r):
	x, y = _num(l), _num(r)
	if y == 0 or math.isinf(x) or math.isnan(y):
		return math.nan
	if math.isinf(y):
		return x
	return math.fmod(x, y)

def _odd(y):
	return y.is_integer() and math.fmod(y, 2.0) != 0

def _pow(l, r):
	x, y = _num(l), _num(r)
	if math.isnan(y) or (math.isinf(y) and abs(x) == 1):
		return math.nan
	try:
		return math.pow(x, y)
	except OverflowError:
		return -math.inf if x < 0 and _odd(y) else math.inf
	except ValueError:
		if x == 0:
			return -math.inf if math.copysign(1.0, x) < 0 and _odd(y) else math.inf
		return math.nan

def _rel(l, r, op):
	if isinstance(l, str) and isinstance(r, str):
		return op(l.encode("utf-16-be"), r.encode("utf-16-be"))
	return op(_num(l), _num(r))

def _eq(l, r):
	if isinstance(l, str) and isinstance(r, str):
		return l == r
	if isinstance(l, bool) and isinstance(r, bool):
		return l == r
	return _num(l) == _num(r)

def {{.Print}}(v):
	print(_str(v))

def {{.Input}}(_question, _callback):
	_callback(input(_question))
{{end}}

{{define "type"}}
{{.Ref}} = types.SimpleNamespace(cast=lambda v: {{.Cast}})
{{end}}

{{define "fault"}}
def {{.Symbol}}({{.Params}}):
	raise RuntimeError({{.Message}})
{{end}}

{{define "fold"}}
def {{.Symbol}}({{.Params}}):
	return functools.reduce(lambda acc, c: {{.Combine}}, {{if .Right}}reversed({{.Rest}}){{else}}{{.Rest}}{{end}}, {{.Seed}})
{{end}}

{{define "compare"}}
def {{.Symbol}}({{.Params}}):
	return {{.Combine}}
{{end}}

{{define "cast"}}
def {{.Symbol}}({{.Params}}):
	return {{.TypeParam}}.cast({{.Value}})
{{end}}
`

type python struct {
	d *dialect
}

// Python returns the adapter for CPython 3 bootstraps.
func Python() Adapter {
	return &python{d: &dialect{
		target:     "python",
		comment:    "#",
		restPrefix: "*",
		minIndent:  1,
		blockGap:   true,
		operators: map[string]string{
			"^":  "_pow({l}, {r})",
			"*":  "_num({l}) * _num({r})",
			"/":  "_div({l}, {r})",
			"%":  "_mod({l}, {r})",
			"+":  "_add({l}, {r})",
			"-":  "_num({l}) - _num({r})",
			">=": "_rel({l}, {r}, operator.ge)",
			"<=": "_rel({l}, {r}, operator.le)",
			">":  "_rel({l}, {r}, operator.gt)",
			"<":  "_rel({l}, {r}, operator.lt)",
			"==": "_eq({l}, {r})",
			"!=": "not _eq({l}, {r})",
		},
		casts: map[ir.TypeTag]string{
			ir.TypeInt:    "_i32(_num(v))",
			ir.TypeFloat:  "_num(v)",
			ir.TypeString: "_str(v)",
		},
		tmpl: template.Must(template.New("python").Parse(pythonTemplates)),
	}}
}

func (a *python) Target() string { return a.d.target }

func (a *python) Emit(reg *registry.Registry, types *registry.TypeTable, s ir.Settings) (*Emission, error) {
	return a.d.render(reg, types, s)
}

func (a *python) CallExpr(code ir.OperatorCode, args ...string) string {
	return fmt.Sprintf("%s(%s)", OperatorSymbol(code), strings.Join(args, ", "))
}

func (a *python) TypeRef(tag ir.TypeTag) string { return TypeSymbol(tag) }
