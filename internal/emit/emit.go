package emit

import (
	"fmt"
	"slices"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// PrimitiveKind classifies an emitted primitive.
type PrimitiveKind string

const (
	KindPrint    PrimitiveKind = "print"
	KindInput    PrimitiveKind = "input"
	KindType     PrimitiveKind = "type"
	KindOperator PrimitiveKind = "operator"
)

// Primitive is one declaration an emission claims to provide.
type Primitive struct {
	Kind   PrimitiveKind   `json:"kind"`
	Code   ir.OperatorCode `json:"code,omitempty"`
	Tag    ir.TypeTag      `json:"tag,omitempty"`
	Symbol string          `json:"symbol"`
}

// Subject names what the primitive implements: "print", "input", a type tag
// or an operator name.
func (p Primitive) Subject() string {
	switch p.Kind {
	case KindType:
		return string(p.Tag)
	case KindOperator:
		return p.Code.String()
	default:
		return string(p.Kind)
	}
}

// Emission is a rendered bootstrap for one target.
type Emission struct {
	Target     string      `json:"target"`
	Settings   ir.Settings `json:"settings"`
	Source     []byte      `json:"-"`
	Primitives []Primitive `json:"primitives"`
}

// Adapter is implemented by every backend.
type Adapter interface {
	// Target is the backend name, e.g. "javascript".
	Target() string

	// Emit renders the bootstrap for reg and types.
	Emit(reg *registry.Registry, types *registry.TypeTable, s ir.Settings) (*Emission, error)

	// CallExpr spells an invocation of code's primitive with the given
	// argument expressions, for the lexical code generator.
	CallExpr(code ir.OperatorCode, args ...string) string

	// TypeRef spells a reference to tag's type descriptor.
	TypeRef(tag ir.TypeTag) string
}

// RenderError reports a descriptor an adapter cannot render.
type RenderError struct {
	Target  string
	Subject string
	Reason  string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	return fmt.Sprintf("emit %s: %s: %s", e.Target, e.Subject, e.Reason)
}

// UnsupportedTargetError is returned by Lookup for unknown target names.
type UnsupportedTargetError struct {
	Target string
}

// Error implements the error interface.
func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("unsupported target %q (have %v)", e.Target, Targets())
}

var adapters = []Adapter{
	JavaScript(),
	Python(),
}

// Lookup returns the adapter for target.
func Lookup(target string) (Adapter, error) {
	for _, a := range adapters {
		if a.Target() == target {
			return a, nil
		}
	}
	return nil, &UnsupportedTargetError{Target: target}
}

// Targets returns the shipped target names in sorted order.
func Targets() []string {
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Target()
	}
	slices.Sort(names)
	return names
}

// OperatorSymbol is the declaration name for code, shared by all targets:
// "so" followed by the numeric id.
func OperatorSymbol(code ir.OperatorCode) string {
	return fmt.Sprintf("so%d", uint8(code))
}

// TypeSymbol is the declaration name for a type descriptor.
func TypeSymbol(tag ir.TypeTag) string {
	return "s_" + string(tag)
}

// Declaration names of the IO primitives.
const (
	PrintSymbol = "s_print"
	InputSymbol = "s_input"
)

// Digest returns the content digest of an emission: target, settings,
// source text and primitive list.
func (e *Emission) Digest() (string, error) {
	prims := make([]any, len(e.Primitives))
	for i, p := range e.Primitives {
		prims[i] = map[string]any{
			"kind":    string(p.Kind),
			"subject": p.Subject(),
			"symbol":  p.Symbol,
		}
	}
	return ir.Digest(ir.DomainEmission, map[string]any{
		"target":     e.Target,
		"source":     string(e.Source),
		"indent":     e.Settings.Indent,
		"prettify":   e.Settings.Prettify,
		"primitives": prims,
	})
}

// primitives lists what an emission over reg and types declares.
func primitives(reg *registry.Registry, types *registry.TypeTable) []Primitive {
	out := []Primitive{
		{Kind: KindPrint, Symbol: PrintSymbol},
		{Kind: KindInput, Symbol: InputSymbol},
	}
	for _, tag := range types.Tags() {
		out = append(out, Primitive{Kind: KindType, Tag: tag, Symbol: TypeSymbol(tag)})
	}
	for _, code := range reg.Codes() {
		out = append(out, Primitive{Kind: KindOperator, Code: code, Symbol: OperatorSymbol(code)})
	}
	return out
}
