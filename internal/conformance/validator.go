package conformance

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/roach88/sobootstrap/internal/emit"
	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// Validator checks one emission for one backend.
type Validator struct {
	reg       *registry.Registry
	types     *registry.TypeTable
	inspector Inspector

	mu    sync.Mutex
	state State
}

// NewValidator returns a validator in the NotChecked state.
func NewValidator(reg *registry.Registry, types *registry.TypeTable, inspector Inspector) *Validator {
	return &Validator{reg: reg, types: types, inspector: inspector}
}

// State returns the validator's current state.
func (v *Validator) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Check validates e against the default tables with the inspector for its
// target.
func Check(ctx context.Context, e *emit.Emission) (*Report, error) {
	inspector, err := InspectorFor(e.Target)
	if err != nil {
		return nil, err
	}
	return NewValidator(registry.Default(), registry.DefaultTypes(), inspector).Validate(ctx, e)
}

// Validate runs every check against e. A non-conformant emission is a
// normal outcome reported through the Report, not an error; errors mean the
// checks could not run. After cancellation the validator stays in
// ChecksInProgress and cannot be reused.
func (v *Validator) Validate(ctx context.Context, e *emit.Emission) (*Report, error) {
	if e.Target != v.inspector.Target() {
		return nil, fmt.Errorf("conformance: %s inspector given a %s emission", v.inspector.Target(), e.Target)
	}

	v.mu.Lock()
	if v.state != NotChecked {
		v.mu.Unlock()
		return nil, ErrValidatorUsed
	}
	v.state = ChecksInProgress
	v.mu.Unlock()

	digest, err := e.Digest()
	if err != nil {
		return nil, err
	}
	in, err := v.inspector.Inspect(e.Source)
	if err != nil {
		return nil, err
	}

	c := &checker{reg: v.reg, types: v.types, emission: e, in: in, seen: make(map[string]bool)}
	for _, step := range []func(){c.checkSyntax, c.checkIO, c.checkTypes, c.checkOperators, c.checkUnknown, c.checkOrder} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step()
	}

	report := &Report{
		Target:         e.Target,
		State:          Conformant,
		Reasons:        c.reasons,
		EmissionDigest: digest,
	}
	if len(c.reasons) > 0 {
		report.State = NonConformant
	}

	v.mu.Lock()
	v.state = report.State
	v.mu.Unlock()
	return report, nil
}

type checker struct {
	reg      *registry.Registry
	types    *registry.TypeTable
	emission *emit.Emission
	in       *Inspection
	reasons  []Reason
	seen     map[string]bool
}

// fail records a reason unless subject already has one.
func (c *checker) fail(subject string, code ReasonCode, format string, args ...any) {
	if c.seen[subject] {
		return
	}
	c.seen[subject] = true
	c.reasons = append(c.reasons, Reason{Subject: subject, Code: code, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) checkSyntax() {
	if len(c.in.SyntaxErrors) > 0 {
		c.fail("source", ReasonSyntax, "source does not parse (first error on line %d)", c.in.SyntaxErrors[0])
	}
}

// listed returns the single primitive matching want, recording a reason
// when there is none or more than one.
func (c *checker) listed(subject string, want func(emit.Primitive) bool) (emit.Primitive, bool) {
	var found []emit.Primitive
	for _, p := range c.emission.Primitives {
		if want(p) {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		c.fail(subject, ReasonNotListed, "no primitive listed")
		return emit.Primitive{}, false
	case 1:
		return found[0], true
	default:
		c.fail(subject, ReasonDuplicate, "listed %d times", len(found))
		return emit.Primitive{}, false
	}
}

// declared returns the declaration of p's symbol, recording a reason when it
// is missing or declared more than once.
func (c *checker) declared(subject string, p emit.Primitive) (Decl, bool) {
	switch n := c.in.Count(p.Symbol); n {
	case 0:
		c.fail(subject, ReasonUndeclared, "%s is not declared", p.Symbol)
		return Decl{}, false
	case 1:
		return c.in.Decls[p.Symbol], true
	default:
		c.fail(subject, ReasonDuplicate, "%s is declared %d times", p.Symbol, n)
		return Decl{}, false
	}
}

func (c *checker) checkIO() {
	p, ok := c.listed("print", func(p emit.Primitive) bool { return p.Kind == emit.KindPrint })
	if ok {
		// An alias of a host function (const s_print = console.log) has no
		// parameter list to inspect; only a body we emitted is shape-checked.
		if d, ok := c.declared("print", p); ok && d.Kind == DeclFunction && (d.Fixed != 1 || d.Rest) {
			c.fail("print", ReasonShape, "%s must take exactly one value", p.Symbol)
		}
	}

	p, ok = c.listed("input", func(p emit.Primitive) bool { return p.Kind == emit.KindInput })
	if !ok {
		return
	}
	d, ok := c.declared("input", p)
	if !ok {
		return
	}
	switch {
	case d.Kind != DeclFunction:
		c.fail("input", ReasonNotCallable, "%s is not a function", p.Symbol)
	case d.Fixed != 2 || d.Rest:
		c.fail("input", ReasonShape, "%s must take (question, callback)", p.Symbol)
	}
}

func (c *checker) checkTypes() {
	for _, tag := range c.types.Tags() {
		subject := string(tag)
		p, ok := c.listed(subject, func(p emit.Primitive) bool { return p.Kind == emit.KindType && p.Tag == tag })
		if !ok {
			continue
		}
		d, ok := c.declared(subject, p)
		if !ok {
			continue
		}
		if !d.HasCast {
			c.fail(subject, ReasonMissingCast, "%s has no cast member", p.Symbol)
		}
	}
}

func (c *checker) checkOperators() {
	for _, desc := range c.reg.All() {
		subject := desc.Name()
		p, ok := c.listed(subject, func(p emit.Primitive) bool { return p.Kind == emit.KindOperator && p.Code == desc.Code })
		if !ok {
			continue
		}
		d, ok := c.declared(subject, p)
		if !ok {
			continue
		}
		c.checkOperatorBody(subject, desc, p, d)
	}
}

func (c *checker) checkOperatorBody(subject string, desc registry.OperatorDescriptor, p emit.Primitive, d Decl) {
	if d.Kind != DeclFunction {
		c.fail(subject, ReasonNotCallable, "%s is not a function", p.Symbol)
		return
	}
	if d.Fixed != desc.Arity.Leading || d.Rest != desc.Arity.Variadic {
		got := registry.Arity{Leading: d.Fixed, Variadic: d.Rest}
		c.fail(subject, ReasonShape, "%s declares %s, contract requires %s", p.Symbol, got.Shape(), desc.Arity.Shape())
		return
	}

	switch desc.Class {
	case registry.ClassFault:
		if !d.RaisesFirst {
			c.fail(subject, ReasonMustRaise, "%s must raise before doing anything else", p.Symbol)
		}
	case registry.ClassFold:
		if d.Fold != desc.Fold {
			c.fail(subject, ReasonFoldDirection, "%s folds %s, contract requires %s", p.Symbol, d.Fold, desc.Fold)
		}
	case registry.ClassCompare, registry.ClassCast:
		if d.Fold != registry.NotFoldable {
			c.fail(subject, ReasonUnexpectedFold, "%s folds %s over fixed operands", p.Symbol, d.Fold)
		}
	}
}

var (
	operatorSymbol = regexp.MustCompile(`^so(\d+)$`)
	typeSymbol     = regexp.MustCompile(`^s_(\w+)$`)
)

// checkUnknown flags listed primitives and declared symbols that name codes
// or tags the contract does not have.
func (c *checker) checkUnknown() {
	for _, p := range c.emission.Primitives {
		switch p.Kind {
		case emit.KindOperator:
			if _, err := c.reg.Resolve(p.Code); err != nil {
				c.fail(p.Code.String(), ReasonUnknownOperator, "primitive %s implements an unregistered code", p.Symbol)
			}
		case emit.KindType:
			if _, err := c.types.Resolve(p.Tag); err != nil {
				c.fail(string(p.Tag), ReasonUnknownType, "primitive %s implements an unregistered type", p.Symbol)
			}
		}
	}

	for _, symbol := range c.in.Order {
		if m := operatorSymbol.FindStringSubmatch(symbol); m != nil {
			id, err := strconv.Atoi(m[1])
			if err != nil || id > 255 {
				c.fail(symbol, ReasonUnknownOperator, "%s is outside the operator code range", symbol)
				continue
			}
			if _, err := c.reg.Resolve(ir.OperatorCode(id)); err != nil {
				c.fail(symbol, ReasonUnknownOperator, "%s implements unregistered code %d", symbol, id)
			}
			continue
		}
		if m := typeSymbol.FindStringSubmatch(symbol); m != nil {
			if symbol == emit.PrintSymbol || symbol == emit.InputSymbol {
				continue
			}
			if _, err := c.types.Resolve(ir.TypeTag(m[1])); err != nil {
				c.fail(symbol, ReasonUnknownType, "%s describes unregistered type %q", symbol, m[1])
			}
		}
	}
}

// checkOrder requires known primitives to appear as print, input, types in
// table order, then operators in canonical order.
func (c *checker) checkOrder() {
	rank := make(map[string]int)
	rank["print"] = 0
	rank["input"] = 1
	next := 2
	for _, tag := range c.types.Tags() {
		rank["type:"+string(tag)] = next
		next++
	}
	for _, code := range c.reg.Codes() {
		rank["op:"+code.String()] = next
		next++
	}

	last := -1
	for _, p := range c.emission.Primitives {
		var key string
		switch p.Kind {
		case emit.KindType:
			key = "type:" + string(p.Tag)
		case emit.KindOperator:
			key = "op:" + p.Code.String()
		default:
			key = string(p.Kind)
		}
		r, known := rank[key]
		if !known || r == last {
			// Unknown and duplicate entries are reported elsewhere.
			continue
		}
		if r <= last {
			c.fail("primitives", ReasonOrder, "%s is listed out of canonical order", p.Subject())
			return
		}
		last = r
	}
}
