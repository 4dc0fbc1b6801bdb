package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind identifies the scalar type held by a Value.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindFloat
	KindString
	KindBool
)

// String returns the kind name used in error messages.
func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindBool:
		return "BOOLEAN"
	default:
		return "UNKNOWN"
	}
}

// Value is a tagged scalar property value. Properties are dynamically typed at
// insertion time, so every value carries its kind alongside the payload.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

// Int64 returns a Value holding an integer.
func Int64(v int64) Value { return Value{Kind: KindInt, Int: v} }

// Float64 returns a Value holding a float.
func Float64(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// String returns a Value holding a string.
func String(v string) Value { return Value{Kind: KindString, Str: v} }

// Bool returns a Value holding a boolean.
func Bool(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// IsNumeric reports whether the value is an integer or a float.
func (v Value) IsNumeric() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// AsFloat returns the numeric payload widened to float64. Only meaningful when
// IsNumeric is true.
func (v Value) AsFloat() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

// Equal compares two values. Integers and floats compare numerically, so
// Int64(30) equals Float64(30.0).
func (v Value) Equal(o Value) bool {
	if v.IsNumeric() && o.IsNumeric() {
		return v.AsFloat() == o.AsFloat()
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindBool:
		return v.Bool == o.Bool
	default:
		return v.Int == o.Int || v.Float == o.Float
	}
}

// Compare orders two values. It returns -1, 0 or 1 and true when the pair is
// comparable (both numeric, or both the same kind), and false otherwise.
func (v Value) Compare(o Value) (int, bool) {
	if v.IsNumeric() && o.IsNumeric() {
		a, b := v.AsFloat(), o.AsFloat()
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}
	if v.Kind != o.Kind {
		return 0, false
	}
	switch v.Kind {
	case KindString:
		switch {
		case v.Str < o.Str:
			return -1, true
		case v.Str > o.Str:
			return 1, true
		default:
			return 0, true
		}
	case KindBool:
		if v.Bool == o.Bool {
			return 0, true
		}
		if !v.Bool {
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

// String renders the scalar payload.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return "?"
	}
}

// MarshalJSON writes the value as a native JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindString:
		return json.Marshal(v.Str)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

// UnmarshalJSON reads a native JSON scalar, keeping whole numbers as integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			*v = Int64(i)
			return nil
		}
		f, err := t.Float64()
		if err != nil {
			return err
		}
		*v = Float64(f)
		return nil
	case string:
		*v = String(t)
		return nil
	case bool:
		*v = Bool(t)
		return nil
	default:
		return fmt.Errorf("unsupported property value %v", raw)
	}
}

// FromNative converts a plain Go scalar into a Value. Whole floats stay floats;
// only int inputs become integers.
func FromNative(x interface{}) (Value, error) {
	switch t := x.(type) {
	case int:
		return Int64(int64(t)), nil
	case int64:
		return Int64(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Value{}, fmt.Errorf("non-finite float property")
		}
		return Float64(t), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported property type %T", x)
	}
}

// Properties is a flat bag of named scalar values.
type Properties map[string]Value

// Clone returns a copy so stored maps never alias caller maps.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Equal reports whether two property bags hold the same keys and values.
func (p Properties) Equal(o Properties) bool {
	if len(p) != len(o) {
		return false
	}
	for k, v := range p {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
