package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"gopkg.in/yaml.v3"
)

// Value is a sealed interface over the runtime values a bootstrap primitive
// can receive or return. Only Number, String, Bool and TypeTag implement it.
type Value interface {
	value() // Sealed
	Kind() string
}

// Number is the single numeric representation (IEEE-754 double).
type Number float64

func (Number) value()         {}
func (Number) Kind() string   { return "number" }
func (n Number) String() string { return FormatNumber(float64(n)) }

// MarshalJSON writes finite numbers in shortest round-trip form and
// non-finite numbers as their string spelling.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(FormatNumber(f))
	}
	return []byte(FormatNumber(f)), nil
}

// String is a string value.
type String string

func (String) value()       {}
func (String) Kind() string { return "string" }

// Bool is the result type of comparisons.
type Bool bool

func (Bool) value()       {}
func (Bool) Kind() string { return "bool" }

// TypeTag is a Value so it can be passed as CAST's second operand, the same
// way bootstraps pass a type descriptor object.
func (TypeTag) value()       {}
func (TypeTag) Kind() string { return "type" }

// FormatNumber formats f the way ECMAScript's Number::toString does:
// shortest round-trip digits, integral values without a fraction, exponent
// form only below 1e-6 or at and above 1e21.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	// "d.ddddde±XX" with the minimal number of digits
	e := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expPart, _ := strings.Cut(e, "e")
	digits := strings.Replace(mantissa, ".", "", 1)
	exp, _ := strconv.Atoi(expPart)
	k := len(digits)
	n := exp + 1

	var out string
	switch {
	case k <= n && n <= 21:
		out = digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		out = digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		out = "0." + strings.Repeat("0", -n) + digits
	default:
		expSign := "+"
		if n-1 < 0 {
			expSign = "-"
		}
		expAbs := n - 1
		if expAbs < 0 {
			expAbs = -expAbs
		}
		if k == 1 {
			out = digits + "e" + expSign + strconv.Itoa(expAbs)
		} else {
			out = digits[:1] + "." + digits[1:] + "e" + expSign + strconv.Itoa(expAbs)
		}
	}
	return sign + out
}

// ParseLiteral interprets command-line or scenario text as a Value:
// true/false become Bool, numeric text becomes Number, a double-quoted
// string is unquoted, and anything else is kept as a String.
func ParseLiteral(s string) Value {
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if unq, err := strconv.Unquote(s); err == nil {
			return String(unq)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return String(s)
}

// FromNative converts a decoded YAML/JSON scalar to a Value.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a runtime value")
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return Number(f), nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// UnmarshalYAML decodes an operand. Scalars are literals; mappings carry
// either a ref or a type key.
func (o *Operand) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var raw any
		if err := node.Decode(&raw); err != nil {
			return err
		}
		v, err := FromNative(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*o = Operand{Literal: v}
		return nil
	}

	var m struct {
		Ref  *int    `yaml:"ref"`
		Type TypeTag `yaml:"type"`
	}
	if err := node.Decode(&m); err != nil {
		return err
	}
	if (m.Ref == nil) == (m.Type == "") {
		return fmt.Errorf("line %d: operand must set exactly one of ref or type", node.Line)
	}
	*o = Operand{Ref: m.Ref, Type: m.Type}
	return nil
}

// CompareUTF16 orders strings by UTF-16 code units, which is how the
// bootstrap targets compare strings and how RFC 8785 orders object keys.
// Go's native string comparison works on UTF-8 bytes and differs for
// supplementary-plane characters.
func CompareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}

	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
