package ir

import (
	"fmt"
	"strings"
)

// OperatorCode identifies a runtime primitive operation.
// The numeric ids are the symbol suffixes emitters use, so they are fixed.
type OperatorCode uint8

// Canonical operator codes, in canonical (ascending) order.
const (
	OpInvalid OperatorCode = 0
	OpPow     OperatorCode = 2
	OpMul     OperatorCode = 3
	OpDiv     OperatorCode = 4
	OpMod     OperatorCode = 5
	OpAdd     OperatorCode = 6
	OpSub     OperatorCode = 7
	OpGE      OperatorCode = 8
	OpLE      OperatorCode = 9
	OpGT      OperatorCode = 10
	OpLT      OperatorCode = 11
	OpEQ      OperatorCode = 12
	OpNE      OperatorCode = 13
	OpCast    OperatorCode = 20
)

var operatorNames = map[OperatorCode]string{
	OpInvalid: "INVALID",
	OpPow:     "POW",
	OpMul:     "MUL",
	OpDiv:     "DIV",
	OpMod:     "MOD",
	OpAdd:     "ADD",
	OpSub:     "SUB",
	OpGE:      "GE",
	OpLE:      "LE",
	OpGT:      "GT",
	OpLT:      "LT",
	OpEQ:      "EQ",
	OpNE:      "NE",
	OpCast:    "CAST",
}

// String returns the symbolic name of the code, e.g. "POW".
func (c OperatorCode) String() string {
	if name, ok := operatorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("OperatorCode(%d)", uint8(c))
}

// ParseOperatorCode parses a symbolic operator name (case-insensitive).
// The returned code is not checked against the registry.
func ParseOperatorCode(name string) (OperatorCode, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for code, n := range operatorNames {
		if n == upper {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown operator name %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (c OperatorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *OperatorCode) UnmarshalText(text []byte) error {
	code, err := ParseOperatorCode(string(text))
	if err != nil {
		return err
	}
	*c = code
	return nil
}

// TypeTag names a primitive type that values can be cast to.
type TypeTag string

const (
	TypeInt    TypeTag = "int"
	TypeFloat  TypeTag = "float"
	TypeString TypeTag = "string"
)

// Program is the front-end's output: an ordered list of operator invocations
// with resolved operands. Step results are addressed by index.
type Program struct {
	Name  string `json:"name" yaml:"name"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// Step is a single operator invocation.
type Step struct {
	Op       OperatorCode `json:"op" yaml:"op"`
	Operands []Operand    `json:"operands" yaml:"operands"`
}

// Operand is exactly one of: a literal value, a reference to an earlier
// step's result, or a type tag (valid only as CAST's second operand).
type Operand struct {
	Literal Value   `json:"literal,omitempty" yaml:"-"`
	Ref     *int    `json:"ref,omitempty" yaml:"ref,omitempty"`
	Type    TypeTag `json:"type,omitempty" yaml:"type,omitempty"`
}

// Lit returns a literal operand.
func Lit(v Value) Operand { return Operand{Literal: v} }

// RefTo returns an operand referring to the result of step i.
func RefTo(i int) Operand { return Operand{Ref: &i} }

// TypeOperand returns a type tag operand.
func TypeOperand(tag TypeTag) Operand { return Operand{Type: tag} }

// Kind reports which variant the operand holds ("literal", "ref", "type")
// or "empty" when none is set.
func (o Operand) Kind() string {
	switch {
	case o.Ref != nil:
		return "ref"
	case o.Type != "":
		return "type"
	case o.Literal != nil:
		return "literal"
	default:
		return "empty"
	}
}

// BuildManifest lists the targets a release emits, with per-target settings.
type BuildManifest struct {
	Name    string         `json:"name"`
	Targets []TargetConfig `json:"targets"`
}

// TargetConfig selects a backend and its rendering settings.
type TargetConfig struct {
	Target   string   `json:"target"`
	Settings Settings `json:"settings"`
}

// Settings control rendering of a bootstrap. They never change semantics.
type Settings struct {
	Indent   int  `json:"indent"`
	Prettify bool `json:"prettify"`
}

// DefaultSettings matches the historical generator defaults.
func DefaultSettings() Settings {
	return Settings{Indent: 2, Prettify: true}
}
