// Package equivalence turns row sets into order-independent, type-normalized
// comparables and checksums.
package equivalence

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
)

// Value is a sealed sum type over the cell values the engine observes.
// Only Null, Bool, Int, Float, Text, Bytes, and List implement it, so
// normalization is exhaustive by type switch.
type Value interface {
	value()
}

// Null represents SQL NULL.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean cell.
type Bool bool

func (Bool) value() {}

// Int represents any integer cell, widened to int64.
type Int int64

func (Int) value() {}

// Float represents any floating-point cell, widened to float64.
type Float float64

func (Float) value() {}

// Text represents a string cell.
type Text string

func (Text) value() {}

// Bytes represents a binary cell.
type Bytes []byte

func (Bytes) value() {}

// List represents a nested collection (arrays, structs flattened in field
// order).
type List []Value

func (List) value() {}

// floatPrecision is the fixed rounding applied to every float before
// formatting. Engines disagree below this precision.
const floatPrecision = 9

// Sentinels for values with no stable textual form of their own.
const (
	nullSentinel   = "<NULL>"
	nanSentinel    = "<NaN>"
	posInfSentinel = "<+Inf>"
	negInfSentinel = "<-Inf>"
)

// Canon renders a value into its canonical comparable form. The rendering is
// deterministic across engines: floats are rounded to a fixed precision and
// printed fixed-width, integers are zero-padded so lexicographic tuple sorts
// are stable, strings are trimmed, and nested collections are normalized
// recursively.
func Canon(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return nullSentinel
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case Int:
		return canonInt(int64(val))
	case Float:
		return canonFloat(float64(val))
	case Text:
		return strings.TrimSpace(string(val))
	case Bytes:
		return "0x" + hex.EncodeToString(val)
	case List:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Canon(elem)
		}
		return "[" + strings.Join(parts, "|") + "]"
	default:
		// Unreachable for sealed implementations.
		return fmt.Sprintf("%v", val)
	}
}

func canonInt(n int64) string {
	if n == math.MinInt64 {
		// -n overflows; the literal is already the full fixed width.
		return "-9223372036854775808"
	}
	if n < 0 {
		return fmt.Sprintf("-%019d", -n)
	}
	return fmt.Sprintf("%020d", n)
}

func canonFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return nanSentinel
	case math.IsInf(f, 1):
		return posInfSentinel
	case math.IsInf(f, -1):
		return negInfSentinel
	}
	shift := math.Pow10(floatPrecision)
	rounded := math.Round(f*shift) / shift
	if rounded == 0 {
		rounded = 0 // collapse -0
	}
	return fmt.Sprintf("%.*f", floatPrecision, rounded)
}

// FromDriver converts a database/sql scan target into a Value. Unknown types
// fall back to their string rendering rather than failing the comparison.
func FromDriver(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(val)
	case int:
		return Int(int64(val))
	case int8:
		return Int(int64(val))
	case int16:
		return Int(int64(val))
	case int32:
		return Int(int64(val))
	case int64:
		return Int(val)
	case uint8:
		return Int(int64(val))
	case uint16:
		return Int(int64(val))
	case uint32:
		return Int(int64(val))
	case uint64:
		return Int(int64(val))
	case float32:
		return Float(float64(val))
	case float64:
		return Float(val)
	case string:
		return Text(val)
	case []byte:
		// Most drivers hand text columns back as []byte.
		return Text(string(val))
	case time.Time:
		return Text(val.UTC().Format(time.RFC3339Nano))
	case []interface{}:
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = FromDriver(elem)
		}
		return out
	default:
		return Text(fmt.Sprintf("%v", val))
	}
}

// ValuesEqual reports whether two values are equal under the float tolerance.
// Integer pairs compare exactly: int64s above 2^53 lose precision in float64,
// so the tolerance path applies only when at least one side is a Float.
// Non-numeric values compare by canonical form.
func ValuesEqual(a, b Value, tolerance float64) bool {
	if ai, ok := a.(Int); ok {
		if bi, ok := b.(Int); ok {
			return ai == bi
		}
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		if math.IsNaN(af) && math.IsNaN(bf) {
			return true
		}
		return math.Abs(af-bf) <= tolerance
	}
	return Canon(a) == Canon(b)
}

func asFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Float:
		return float64(val), true
	case Int:
		return float64(val), true
	default:
		return 0, false
	}
}
