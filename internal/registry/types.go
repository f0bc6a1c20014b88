package registry

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/sobootstrap/internal/ir"
)

// TypeDescriptor is a closed variant: IntType, FloatType or StringType.
// Consumers dispatch with a type switch; the unexported marker method keeps
// other packages from adding cases.
type TypeDescriptor interface {
	Tag() ir.TypeTag
	// Rule documents the coercion rule and representation for emitters.
	Rule() string
	typeDescriptor()
}

// IntType truncates toward zero with 32-bit wraparound (ToInt32).
type IntType struct{}

// FloatType performs numeric coercion (unary plus).
type FloatType struct{}

// StringType yields the value's string form as a primitive string in every
// target. JavaScript renders String(v), not the String object new String(v),
// so two casts of equal text are EQ and not NE.
type StringType struct{}

func (IntType) Tag() ir.TypeTag    { return ir.TypeInt }
func (FloatType) Tag() ir.TypeTag  { return ir.TypeFloat }
func (StringType) Tag() ir.TypeTag { return ir.TypeString }

func (IntType) Rule() string {
	return "ToNumber then ToInt32: truncate toward zero, wrap modulo 2^32 into [-2^31, 2^31), NaN and Infinity become 0"
}

func (FloatType) Rule() string {
	return "ToNumber: numbers unchanged, booleans 1/0, strings trimmed of JS whitespace (including U+FEFF) and parsed as decimal or 0x/0o/0b literals of any width, rounded to nearest (blank is 0, malformed is NaN)"
}

func (StringType) Rule() string {
	return "ToString: JS Number::toString text (shortest round-trip digits, fixed notation for decimal exponents -6..20, otherwise d.ddde±N), booleans true/false; result is a primitive string in every target (JS String(v), Python str), so EQ/NE compare cast strings by content"
}

func (IntType) typeDescriptor()    {}
func (FloatType) typeDescriptor()  {}
func (StringType) typeDescriptor() {}

// TypeTable is the immutable type descriptor table.
type TypeTable struct {
	ordered []TypeDescriptor
}

var defaultTypes = &TypeTable{
	ordered: []TypeDescriptor{IntType{}, FloatType{}, StringType{}},
}

// DefaultTypes returns the canonical type table.
func DefaultTypes() *TypeTable { return defaultTypes }

// NewTypeTable builds a type table in the given order. Used by tests that
// need a table with a descriptor missing.
func NewTypeTable(descs ...TypeDescriptor) *TypeTable {
	return &TypeTable{ordered: append([]TypeDescriptor(nil), descs...)}
}

// All returns the descriptors in canonical order.
func (t *TypeTable) All() []TypeDescriptor {
	return append([]TypeDescriptor(nil), t.ordered...)
}

// Tags returns the registered tags in canonical order.
func (t *TypeTable) Tags() []ir.TypeTag {
	tags := make([]ir.TypeTag, len(t.ordered))
	for i, d := range t.ordered {
		tags[i] = d.Tag()
	}
	return tags
}

// Resolve returns the descriptor for tag, or an UnknownType error.
func (t *TypeTable) Resolve(tag ir.TypeTag) (TypeDescriptor, error) {
	for _, d := range t.ordered {
		if d.Tag() == tag {
			return d, nil
		}
	}
	return nil, NewUnknownTypeError(tag)
}

// Types returns the default table's descriptors in canonical order:
// int, float, string.
func Types() []TypeDescriptor { return defaultTypes.All() }

// ResolveType looks up tag in the default table.
func ResolveType(tag ir.TypeTag) (TypeDescriptor, error) {
	return defaultTypes.Resolve(tag)
}

// Cast applies tag's cast rule to v. It fails only for unknown tags; every
// value has a defined result for every registered tag.
func Cast(v ir.Value, tag ir.TypeTag) (ir.Value, error) {
	d, err := ResolveType(tag)
	if err != nil {
		return nil, err
	}
	return CastWith(d, v), nil
}

// CastWith applies a resolved descriptor's cast rule.
func CastWith(d TypeDescriptor, v ir.Value) ir.Value {
	switch d.(type) {
	case IntType:
		return ir.Number(ToInt32(ToNumber(v)))
	case FloatType:
		return ir.Number(ToNumber(v))
	case StringType:
		return ir.String(ToString(v))
	default:
		// Unreachable: TypeDescriptor is sealed.
		panic("registry: unknown type descriptor")
	}
}

var (
	decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	radixLiteral   = regexp.MustCompile(`^0([xXoObB])([0-9a-fA-F]+)$`)
)

// ToNumber converts a value to a number the way the bootstrap targets'
// unary plus does.
func ToNumber(v ir.Value) float64 {
	switch val := v.(type) {
	case ir.Number:
		return float64(val)
	case ir.Bool:
		if val {
			return 1
		}
		return 0
	case ir.String:
		return stringToNumber(string(val))
	default:
		// Type descriptors are objects in the targets; objects coerce to NaN.
		return math.NaN()
	}
}

// isJSSpace reports the characters a numeric string may be padded with:
// the targets' WhiteSpace and LineTerminator sets. Unlike unicode.IsSpace
// this includes U+FEFF and excludes U+0085.
func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00a0', '\u1680',
		'\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

func stringToNumber(s string) float64 {
	s = strings.TrimFunc(s, isJSSpace)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if decimalLiteral.MatchString(s) {
		// Out-of-range literals come back as ±Inf with a range error, which
		// is the wanted result.
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	if m := radixLiteral.FindStringSubmatch(s); m != nil {
		base := map[byte]int{'x': 16, 'X': 16, 'o': 8, 'O': 8, 'b': 2, 'B': 2}[m[1][0]]
		n, ok := new(big.Int).SetString(m[2], base)
		if !ok {
			return math.NaN()
		}
		// Rounds to nearest even; literals past the float64 range give +Inf.
		f, _ := new(big.Float).SetInt(n).Float64()
		return f
	}
	return math.NaN()
}

// ToInt32 truncates toward zero and wraps into the signed 32-bit range.
// NaN and infinities map to 0.
func ToInt32(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	const two32 = 1 << 32
	const two31 = 1 << 31
	m := math.Mod(math.Trunc(f), two32)
	if m < 0 {
		m += two32
	}
	if m >= two31 {
		m -= two32
	}
	if m == 0 {
		return 0 // no negative zero in int32
	}
	return m
}

// ToString converts a value to its string form.
func ToString(v ir.Value) string {
	switch val := v.(type) {
	case ir.Number:
		return ir.FormatNumber(float64(val))
	case ir.Bool:
		if val {
			return "true"
		}
		return "false"
	case ir.String:
		return string(val)
	case ir.TypeTag:
		return string(val)
	default:
		return ""
	}
}
