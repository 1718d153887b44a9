// Package value implements the tagged scalar union shared by every column,
// view, and filter expression in the engine.
package value

import (
	"fmt"
	"math"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindBool
	KindString
	KindDate     // days since 1970-01-01, signed 32-bit
	KindDateTime // milliseconds since epoch UTC, signed 64-bit
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar. Strings are either stored inline (str) or as an
// interned id (strID, interned=true); callers resolve interned ids through
// the owning intern.Interner.
type Value struct {
	kind     Kind
	i        int64
	f        float64
	b        bool
	str      string
	strID    uint32
	interned bool
}

// Null is the canonical null value.
var Null = Value{kind: KindNull}

func Int32(v int32) Value      { return Value{kind: KindInt32, i: int64(v)} }
func Int64(v int64) Value      { return Value{kind: KindInt64, i: v} }
func Float32(v float32) Value  { return Value{kind: KindFloat32, f: float64(v)} }
func Float64(v float64) Value  { return Value{kind: KindFloat64, f: v} }
func Bool(v bool) Value        { return Value{kind: KindBool, b: v} }
func String(v string) Value    { return Value{kind: KindString, str: v} }
func Date(days int32) Value    { return Value{kind: KindDate, i: int64(days)} }
func DateTime(ms int64) Value  { return Value{kind: KindDateTime, i: ms} }

// InternedString builds a string Value backed by an interner id; Resolve
// must be given the owning interner to recover the text.
func InternedString(id uint32) Value {
	return Value{kind: KindString, strID: id, interned: true}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) Interned() bool  { return v.interned }
func (v Value) InternID() uint32 { return v.strID }

// Int returns the underlying integer for Int32/Int64/Date/DateTime kinds.
func (v Value) Int() int64 { return v.i }

// Float returns the underlying float for Float32/Float64 kinds.
func (v Value) Float() float64 { return v.f }

// Bool returns the underlying boolean for Bool kind.
func (v Value) BoolValue() bool { return v.b }

// Str returns the inline string; for interned values the caller must resolve
// via the interner and should not call Str directly.
func (v Value) Str() string { return v.str }

// IsNumeric reports whether the value is one of the numeric kinds.
func (v Value) IsNumeric() bool {
	switch v.kind {
	case KindInt32, KindInt64, KindFloat32, KindFloat64, KindDate, KindDateTime:
		return true
	default:
		return false
	}
}

// AsF64 returns an unboxed float64 when the variant is numeric and
// non-null. Aggregate and sort hot paths must use this rather than
// round-tripping through the tagged union. ok is false for null or
// non-numeric values.
func (v Value) AsF64() (result float64, ok bool) {
	switch v.kind {
	case KindInt32, KindInt64, KindDate, KindDateTime:
		return float64(v.i), true
	case KindFloat32, KindFloat64:
		return v.f, true
	default:
		return 0, false
	}
}

// coerceNumeric widens two numeric values per §4.A: integers widen to
// Int64, then to Float64 if either side is a float.
func coerceNumeric(a, b Value) (af, bf float64, isFloat bool, ok bool) {
	af, aok := a.AsF64()
	bf, bok := b.AsF64()
	if !aok || !bok {
		return 0, 0, false, false
	}
	isFloat = a.kind == KindFloat32 || a.kind == KindFloat64 ||
		b.kind == KindFloat32 || b.kind == KindFloat64
	return af, bf, isFloat, true
}

var defaultCollator = collate.New(language.Und)

// Resolver recovers the text of an interned string id.
type Resolver interface {
	Resolve(id uint32) (string, bool)
}

// stringOf resolves the comparable string for a value, given an optional
// resolver for interned ids (nil means the value cannot be interned).
func stringOf(v Value, r Resolver) (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	if !v.interned {
		return v.str, true
	}
	if r == nil {
		return "", false
	}
	return r.Resolve(v.strID)
}

// NullsOrder controls where Null sorts relative to non-null values.
type NullsOrder int

const (
	NullsLast NullsOrder = iota
	NullsFirst
)

// Compare orders two values for sorting purposes. Null sorts before every
// non-null value under NullsFirst and after it under NullsLast (the zero
// value of NullsOrder). Values of kinds that cannot be compared with each
// other (e.g. string vs bool) compare as 0.
func Compare(a, b Value, nullsOrder NullsOrder, r Resolver) int {
	if a.IsNull() || b.IsNull() {
		switch {
		case a.IsNull() && b.IsNull():
			return 0
		case a.IsNull():
			if nullsOrder == NullsFirst {
				return -1
			}
			return 1
		default: // b.IsNull()
			if nullsOrder == NullsFirst {
				return 1
			}
			return -1
		}
	}

	if af, bf, isFloat, ok := coerceNumeric(a, b); ok {
		if !isFloat {
			switch {
			case a.i < b.i:
				return -1
			case a.i > b.i:
				return 1
			default:
				return 0
			}
		}
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	if a.kind == KindString && b.kind == KindString {
		as, aok := stringOf(a, r)
		bs, bok := stringOf(b, r)
		if aok && bok {
			return defaultCollator.CompareString(as, bs)
		}
	}

	if a.kind == KindBool && b.kind == KindBool {
		switch {
		case a.b == b.b:
			return 0
		case !a.b && b.b:
			return -1
		default:
			return 1
		}
	}

	return 0
}

// Equal implements SQL-style equality: Null never equals anything,
// including another Null. Use EqualGroupKey for group-by key semantics
// where Null=Null.
func Equal(a, b Value, r Resolver) bool {
	if a.IsNull() || b.IsNull() {
		return false
	}
	return Compare(a, b, NullsLast, r) == 0
}

// EqualGroupKey implements group-by key equality, where a null component
// matches another null component (spec §4.A).
func EqualGroupKey(a, b Value, r Resolver) bool {
	if a.IsNull() && b.IsNull() {
		return true
	}
	if a.IsNull() || b.IsNull() {
		return false
	}
	return Compare(a, b, NullsLast, r) == 0
}

// Hash returns a hash defined for every non-null variant. Numerics hash by
// their canonical wider type so Int32(1) and Int64(1) hash equal.
func Hash(v Value, r Resolver) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211

	fnv := func(s string) uint64 {
		h := uint64(offset64)
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= prime64
		}
		return h
	}

	switch {
	case v.IsNull():
		return 0
	case v.IsNumeric():
		f, _ := v.AsF64()
		return math.Float64bits(f)
	case v.kind == KindBool:
		if v.b {
			return 1
		}
		return 2
	case v.kind == KindString:
		s, ok := stringOf(v, r)
		if !ok {
			return fnv(fmt.Sprintf("#%d", v.strID))
		}
		return fnv(s)
	default:
		return 0
	}
}

// String renders a value for diagnostics; it never resolves interned ids
// (callers needing the text must use a Resolver).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt32, KindInt64, KindDate, KindDateTime:
		return fmt.Sprintf("%d", v.i)
	case KindFloat32, KindFloat64:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindString:
		if v.interned {
			return fmt.Sprintf("#%d", v.strID)
		}
		return v.str
	default:
		return "?"
	}
}
