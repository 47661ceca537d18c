// Package ltype defines the tagged value and structure types shared across
// the Loxone bridge: the live-state sum type, and the structure-catalogue
// view types (rooms, categories, devices, capabilities).
package ltype

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindDouble Kind = iota
	KindText
	KindBool
)

// Value is a tagged sum type for Miniserver state values. Exactly one of
// the typed accessors is meaningful, selected by Kind.
type Value struct {
	kind Kind
	d    float64
	s    string
	b    bool
}

// Double constructs a numeric Value.
func Double(v float64) Value { return Value{kind: KindDouble, d: v} }

// Text constructs a string Value.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Bool constructs a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind reports which variant is held.
func (v Value) Kind() Kind { return v.kind }

// AsDouble returns the numeric variant and whether the value holds one.
func (v Value) AsDouble() (float64, bool) { return v.d, v.kind == KindDouble }

// AsText returns the string variant and whether the value holds one.
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// AsBool returns the boolean variant and whether the value holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Equal reports whether two values carry the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindDouble:
		return v.d == o.d
	case KindText:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	default:
		return false
	}
}

// String renders the value for logs and human-readable displays.
func (v Value) String() string {
	switch v.kind {
	case KindDouble:
		return fmt.Sprintf("%g", v.d)
	case KindText:
		return v.s
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	default:
		return "<unknown>"
	}
}

// MarshalJSON emits the bare underlying value, matching the wire shape of
// the Miniserver's own JSON responses (no tag wrapper).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindDouble:
		return json.Marshal(v.d)
	case KindText:
		return json.Marshal(v.s)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON lifts a raw JSON scalar into the appropriate variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny lifts a decoded JSON scalar (float64, string, bool, or nil from
// encoding/json) into a Value. Unrecognized types fall back to Text via
// fmt.Sprint so no caller ever needs to handle a fourth variant.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case float64:
		return Double(t)
	case string:
		return Text(t)
	case bool:
		return Bool(t)
	case nil:
		return Text("")
	default:
		return Text(fmt.Sprint(t))
	}
}

// IsNaN reports whether a double-kinded value is NaN.
func (v Value) IsNaN() bool {
	return v.kind == KindDouble && math.IsNaN(v.d)
}
