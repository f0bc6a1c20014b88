package evaluator

import (
	"math"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// Evaluator interprets operator invocations against a registry and type
// table. It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	reg   *registry.Registry
	types *registry.TypeTable
}

// New returns an evaluator over the given tables.
func New(reg *registry.Registry, types *registry.TypeTable) *Evaluator {
	return &Evaluator{reg: reg, types: types}
}

var defaultEvaluator = New(registry.Default(), registry.DefaultTypes())

// Default returns the evaluator over the canonical tables.
func Default() *Evaluator { return defaultEvaluator }

// Eval applies code to operands with the default evaluator.
func Eval(code ir.OperatorCode, operands ...ir.Value) (ir.Value, error) {
	return defaultEvaluator.Eval(code, operands...)
}

// Eval applies code to operands. The arity is checked before anything is
// evaluated; INVALID always fails with an InvalidOperation error.
func (e *Evaluator) Eval(code ir.OperatorCode, operands ...ir.Value) (ir.Value, error) {
	d, err := e.reg.Resolve(code)
	if err != nil {
		return nil, err
	}
	if !d.Arity.Accepts(len(operands)) {
		return nil, registry.NewArityError(code, d.Arity, len(operands))
	}

	switch d.Class {
	case registry.ClassFault:
		return nil, registry.NewInvalidOperationError()
	case registry.ClassCast:
		return e.cast(operands)
	}

	for i, v := range operands {
		if v == nil {
			return nil, registry.NewOperandTypeError(code, i, "value", "nothing")
		}
		if _, ok := v.(ir.TypeTag); ok {
			return nil, registry.NewOperandTypeError(code, i, "value", "type")
		}
	}

	switch d.Class {
	case registry.ClassCompare:
		return ir.Bool(compare(code, operands[0], operands[1])), nil
	case registry.ClassFold:
		return foldOperands(d, operands), nil
	default:
		return nil, registry.NewInvalidOperationError()
	}
}

func (e *Evaluator) cast(operands []ir.Value) (ir.Value, error) {
	if operands[0] == nil {
		return nil, registry.NewOperandTypeError(ir.OpCast, 0, "value", "nothing")
	}
	if _, ok := operands[0].(ir.TypeTag); ok {
		return nil, registry.NewOperandTypeError(ir.OpCast, 0, "value", "type")
	}
	tag, ok := operands[1].(ir.TypeTag)
	if !ok {
		got := "nothing"
		if operands[1] != nil {
			got = operands[1].Kind()
		}
		return nil, registry.NewOperandTypeError(ir.OpCast, 1, "type", got)
	}
	d, err := e.types.Resolve(tag)
	if err != nil {
		return nil, err
	}
	return registry.CastWith(d, operands[0]), nil
}

// foldOperands applies the descriptor's fold. Right folds walk the operands
// from last to first with acc = op(current, acc); left folds walk first to
// last with acc = op(acc, current).
func foldOperands(d registry.OperatorDescriptor, operands []ir.Value) ir.Value {
	var acc ir.Value
	rest := operands
	switch d.Identity.Kind {
	case registry.IdentityConstant:
		acc = ir.Number(d.Identity.Value)
	case registry.IdentityFirstOperand:
		acc, rest = operands[0], operands[1:]
	}

	if d.Fold == registry.RightAssociative {
		for i := len(rest) - 1; i >= 0; i-- {
			acc = apply(d.Code, rest[i], acc)
		}
		return acc
	}
	for _, cur := range rest {
		acc = apply(d.Code, acc, cur)
	}
	return acc
}

func apply(code ir.OperatorCode, l, r ir.Value) ir.Value {
	if code == ir.OpAdd {
		_, ls := l.(ir.String)
		_, rs := r.(ir.String)
		if ls || rs {
			return ir.String(registry.ToString(l) + registry.ToString(r))
		}
	}

	x, y := registry.ToNumber(l), registry.ToNumber(r)
	switch code {
	case ir.OpPow:
		return ir.Number(pow(x, y))
	case ir.OpMul:
		return ir.Number(x * y)
	case ir.OpDiv:
		return ir.Number(x / y)
	case ir.OpMod:
		return ir.Number(math.Mod(x, y))
	case ir.OpAdd:
		return ir.Number(x + y)
	case ir.OpSub:
		return ir.Number(x - y)
	default:
		return ir.Number(math.NaN())
	}
}

// pow differs from math.Pow where the targets do: a NaN exponent is always
// NaN, and ±1 raised to ±Infinity is NaN.
func pow(x, y float64) float64 {
	if math.IsNaN(y) {
		return math.NaN()
	}
	if math.IsInf(y, 0) && (x == 1 || x == -1) {
		return math.NaN()
	}
	return math.Pow(x, y)
}

func compare(code ir.OperatorCode, l, r ir.Value) bool {
	if code == ir.OpEQ {
		return looseEqual(l, r)
	}
	if code == ir.OpNE {
		return !looseEqual(l, r)
	}

	ls, lok := l.(ir.String)
	rs, rok := r.(ir.String)
	if lok && rok {
		c := ir.CompareUTF16(string(ls), string(rs))
		switch code {
		case ir.OpGE:
			return c >= 0
		case ir.OpLE:
			return c <= 0
		case ir.OpGT:
			return c > 0
		default:
			return c < 0
		}
	}

	// NaN makes every relational comparison false.
	x, y := registry.ToNumber(l), registry.ToNumber(r)
	switch code {
	case ir.OpGE:
		return x >= y
	case ir.OpLE:
		return x <= y
	case ir.OpGT:
		return x > y
	default:
		return x < y
	}
}

func looseEqual(l, r ir.Value) bool {
	switch lv := l.(type) {
	case ir.String:
		if rv, ok := r.(ir.String); ok {
			return lv == rv
		}
	case ir.Bool:
		if rv, ok := r.(ir.Bool); ok {
			return lv == rv
		}
	}
	return registry.ToNumber(l) == registry.ToNumber(r)
}
