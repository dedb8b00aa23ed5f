package qds

import (
	"strconv"

	gojson "github.com/goccy/go-json"
)

// ValueKind tags the active alternative of a Value.
type ValueKind uint8

const (
	ValueEmpty ValueKind = iota
	ValueString
	ValueInt
	ValueDouble
	ValueBool
)

// Value is the tagged union carried by a measurement: empty, string, int64,
// float64 or bool. The zero Value is empty.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
}

// StringValue returns a Value holding s.
func StringValue(s string) Value { return Value{kind: ValueString, s: s} }

// IntValue returns a Value holding i.
func IntValue(i int64) Value { return Value{kind: ValueInt, i: i} }

// DoubleValue returns a Value holding f.
func DoubleValue(f float64) Value { return Value{kind: ValueDouble, f: f} }

// BoolValue returns a Value holding b.
func BoolValue(b bool) Value { return Value{kind: ValueBool, b: b} }

// Kind returns the active alternative.
func (v Value) Kind() ValueKind { return v.kind }

// IsEmpty reports whether no value has been set.
func (v Value) IsEmpty() bool { return v.kind == ValueEmpty }

// Str returns the string payload; valid only when Kind() == ValueString.
func (v Value) Str() string { return v.s }

// Int returns the integer payload; valid only when Kind() == ValueInt.
func (v Value) Int() int64 { return v.i }

// Float returns the floating-point payload; valid only when Kind() == ValueDouble.
func (v Value) Float() float64 { return v.f }

// Bool returns the boolean payload; valid only when Kind() == ValueBool.
func (v Value) Bool() bool { return v.b }

// String renders the value as text: the payload itself for strings, decimal
// for numbers, "true"/"false" for bools and "" when empty.
func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.s
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case ValueBool:
		if v.b {
			return "true"
		}
		return "false"
	}
	return ""
}

// MarshalJSON emits the native JSON type of the payload. An empty value
// serializes as null; the validator never lets one through.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return gojson.Marshal(v.s)
	case ValueInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case ValueDouble:
		return gojson.Marshal(v.f)
	case ValueBool:
		return strconv.AppendBool(nil, v.b), nil
	}
	return []byte("null"), nil
}

// Equal reports whether two values hold the same alternative and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueString:
		return v.s == o.s
	case ValueInt:
		return v.i == o.i
	case ValueDouble:
		return v.f == o.f
	case ValueBool:
		return v.b == o.b
	}
	return true
}
