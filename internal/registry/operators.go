package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sobootstrap/internal/ir"
)

// Arity is an operator's operand shape: a number of leading positional
// parameters, optionally followed by a rest parameter collecting trailing
// operands. Min is the smallest operand count a call may pass; for variadic
// operators it can exceed Leading (POW takes all operands through its rest
// parameter but needs at least one).
type Arity struct {
	Leading  int  `json:"leading"`
	Variadic bool `json:"variadic"`
	Min      int  `json:"min"`
}

// Fixed returns an arity of exactly n operands.
func Fixed(n int) Arity { return Arity{Leading: n, Min: n} }

// Variadic returns an arity of `leading` positional operands plus any number
// of trailing operands.
func Variadic(leading int) Arity { return Arity{Leading: leading, Variadic: true, Min: leading} }

// AtLeast returns a copy of a requiring at least min operands.
func (a Arity) AtLeast(min int) Arity {
	if min > a.Min {
		a.Min = min
	}
	return a
}

// Accepts reports whether n operands satisfy the arity.
func (a Arity) Accepts(n int) bool {
	if a.Variadic {
		return n >= a.Min
	}
	return n == a.Leading
}

// SameShape reports whether two arities declare the same parameter list.
// Min is a call-site rule and is not part of the shape.
func (a Arity) SameShape(b Arity) bool {
	return a.Leading == b.Leading && a.Variadic == b.Variadic
}

// String renders the arity, e.g. "exactly 2" or "at least 1".
func (a Arity) String() string {
	if a.Variadic {
		return fmt.Sprintf("at least %d", a.Min)
	}
	return fmt.Sprintf("exactly %d", a.Leading)
}

// Shape renders the parameter list shape, e.g. "(p0, ...rest)".
func (a Arity) Shape() string {
	params := make([]string, 0, a.Leading+1)
	for i := 0; i < a.Leading; i++ {
		params = append(params, fmt.Sprintf("p%d", i))
	}
	if a.Variadic {
		params = append(params, "...rest")
	}
	return "(" + strings.Join(params, ", ") + ")"
}

// FoldDirection is the order a variadic operator combines operands.
type FoldDirection string

const (
	LeftAssociative  FoldDirection = "left"
	RightAssociative FoldDirection = "right"
	NotFoldable      FoldDirection = "none"
)

// IdentityKind selects where a fold's seed comes from.
type IdentityKind string

const (
	IdentityNone         IdentityKind = "none"
	IdentityConstant     IdentityKind = "constant"
	IdentityFirstOperand IdentityKind = "first_operand"
)

// Identity is the fold seed: a constant (MUL, POW) or the first operand
// (DIV, MOD, ADD, SUB).
type Identity struct {
	Kind  IdentityKind `json:"kind"`
	Value float64      `json:"value,omitempty"`
}

// FailurePolicy states whether an operator can fail by contract.
type FailurePolicy string

const (
	// Total operators always produce a value for accepted arities.
	Total FailurePolicy = "total"

	// ThrowsInvalidOperation marks the default/unmatched dispatch case.
	ThrowsInvalidOperation FailurePolicy = "throws_invalid_operation"
)

// Class groups operators whose bodies share a rendering strategy.
type Class string

const (
	ClassFault   Class = "fault"
	ClassFold    Class = "fold"
	ClassCompare Class = "compare"
	ClassCast    Class = "cast"
)

// Associativity is the parse-time associativity of the surface operator.
type Associativity string

const (
	AssocLeft  Associativity = "left"
	AssocRight Associativity = "right"
)

// OperatorDescriptor is the contract entry for one operator code.
// Symbol, Precedence and Assoc describe the surface operator for the
// front-end; the remaining fields describe runtime behavior.
type OperatorDescriptor struct {
	Code       ir.OperatorCode `json:"code"`
	Symbol     string          `json:"symbol"`
	Precedence uint32          `json:"precedence"`
	Assoc      Associativity   `json:"assoc"`
	Class      Class           `json:"class"`
	Arity      Arity           `json:"arity"`
	Fold       FoldDirection   `json:"fold"`
	Identity   Identity        `json:"identity"`
	Failure    FailurePolicy   `json:"failure"`
}

// Name returns the symbolic name of the descriptor's code.
func (d OperatorDescriptor) Name() string { return d.Code.String() }

func fold(code ir.OperatorCode, symbol string, prec uint32, assoc Associativity, arity Arity, dir FoldDirection, seed Identity) OperatorDescriptor {
	return OperatorDescriptor{
		Code: code, Symbol: symbol, Precedence: prec, Assoc: assoc,
		Class: ClassFold, Arity: arity, Fold: dir, Identity: seed, Failure: Total,
	}
}

func compare(code ir.OperatorCode, symbol string, prec uint32) OperatorDescriptor {
	return OperatorDescriptor{
		Code: code, Symbol: symbol, Precedence: prec, Assoc: AssocLeft,
		Class: ClassCompare, Arity: Fixed(2), Fold: NotFoldable,
		Identity: Identity{Kind: IdentityNone}, Failure: Total,
	}
}

var (
	seedOne   = Identity{Kind: IdentityConstant, Value: 1}
	seedFirst = Identity{Kind: IdentityFirstOperand}
)

// canonicalDescriptors is the single source of truth for every backend.
// Precedences and symbols are the front-end's surface operator table.
func canonicalDescriptors() []OperatorDescriptor {
	return []OperatorDescriptor{
		{
			Code: ir.OpInvalid, Symbol: "", Precedence: 0, Assoc: AssocLeft,
			Class: ClassFault, Arity: Fixed(0), Fold: NotFoldable,
			Identity: Identity{Kind: IdentityNone}, Failure: ThrowsInvalidOperation,
		},
		fold(ir.OpPow, "^", 250, AssocRight, Variadic(0).AtLeast(1), RightAssociative, seedOne),
		fold(ir.OpMul, "*", 200, AssocLeft, Variadic(0), LeftAssociative, seedOne),
		fold(ir.OpDiv, "/", 200, AssocLeft, Variadic(1), LeftAssociative, seedFirst),
		fold(ir.OpMod, "%", 200, AssocLeft, Variadic(1), LeftAssociative, seedFirst),
		fold(ir.OpAdd, "+", 100, AssocLeft, Variadic(1), LeftAssociative, seedFirst),
		fold(ir.OpSub, "-", 100, AssocLeft, Variadic(1), LeftAssociative, seedFirst),
		compare(ir.OpGE, ">=", 50),
		compare(ir.OpLE, "<=", 50),
		compare(ir.OpGT, ">", 50),
		compare(ir.OpLT, "<", 50),
		compare(ir.OpEQ, "==", 40),
		compare(ir.OpNE, "!=", 40),
		{
			Code: ir.OpCast, Symbol: ":", Precedence: 2, Assoc: AssocLeft,
			Class: ClassCast, Arity: Fixed(2), Fold: NotFoldable,
			Identity: Identity{Kind: IdentityNone}, Failure: Total,
		},
	}
}

// Registry is an immutable operator table.
type Registry struct {
	ordered []OperatorDescriptor
	byCode  map[ir.OperatorCode]int
}

// New builds a registry from descriptors. Descriptors must be in strictly
// ascending code order; duplicates are rejected.
func New(descs ...OperatorDescriptor) (*Registry, error) {
	r := &Registry{
		ordered: make([]OperatorDescriptor, 0, len(descs)),
		byCode:  make(map[ir.OperatorCode]int, len(descs)),
	}
	for i, d := range descs {
		if i > 0 && d.Code <= descs[i-1].Code {
			return nil, fmt.Errorf("registry: descriptor %s out of canonical order after %s", d.Code, descs[i-1].Code)
		}
		if d.Fold != NotFoldable && !d.Arity.Variadic {
			return nil, fmt.Errorf("registry: %s declares fold %q but fixed arity", d.Code, d.Fold)
		}
		r.byCode[d.Code] = len(r.ordered)
		r.ordered = append(r.ordered, d)
	}
	return r, nil
}

var defaultRegistry = mustNew(canonicalDescriptors()...)

func mustNew(descs ...OperatorDescriptor) *Registry {
	r, err := New(descs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the canonical registry shared by every backend.
func Default() *Registry { return defaultRegistry }

// Resolve returns the descriptor for code, or an UnknownOperator error.
func (r *Registry) Resolve(code ir.OperatorCode) (OperatorDescriptor, error) {
	i, ok := r.byCode[code]
	if !ok {
		return OperatorDescriptor{}, NewUnknownOperatorError(code)
	}
	return r.ordered[i], nil
}

// Resolve looks up code in the default registry.
func Resolve(code ir.OperatorCode) (OperatorDescriptor, error) {
	return defaultRegistry.Resolve(code)
}

// All returns every descriptor in canonical order. The slice is a copy.
func (r *Registry) All() []OperatorDescriptor {
	return slices.Clone(r.ordered)
}

// Codes returns the registered codes in canonical order.
func (r *Registry) Codes() []ir.OperatorCode {
	codes := make([]ir.OperatorCode, len(r.ordered))
	for i, d := range r.ordered {
		codes[i] = d.Code
	}
	return codes
}

// Len returns the number of registered operators.
func (r *Registry) Len() int { return len(r.ordered) }

// LookupSymbol finds the descriptor for a surface operator symbol such as
// "^" or ">=". The INVALID code has no symbol and is never returned.
func (r *Registry) LookupSymbol(symbol string) (OperatorDescriptor, bool) {
	if symbol == "" {
		return OperatorDescriptor{}, false
	}
	for _, d := range r.ordered {
		if d.Symbol == symbol {
			return d, true
		}
	}
	return OperatorDescriptor{}, false
}

// CheckArity returns an ArityError when n operands do not fit code's arity.
func (r *Registry) CheckArity(code ir.OperatorCode, n int) error {
	d, err := r.Resolve(code)
	if err != nil {
		return err
	}
	if !d.Arity.Accepts(n) {
		return NewArityError(code, d.Arity, n)
	}
	return nil
}
