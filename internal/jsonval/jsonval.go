// Package jsonval provides a recursive, dynamically-typed JSON value model.
//
// Tool inputs and control-request bodies arrive with shapes we cannot know
// statically. Rather than passing json.RawMessage or map[string]any around,
// consumers work with an explicit tagged Value and switch over its Kind,
// with a default arm for shapes they don't recognize.
//
// Values are immutable after construction. Structural equality is defined as
// equality of the canonical encoding (object keys sorted). Numeric literals
// with no fractional or exponent part decode as int64 (falling back to
// float64 on overflow); everything else decodes as float64.
package jsonval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant of a Value is active.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns an array value holding the given elements.
func Array(elems ...Value) Value {
	arr := make([]Value, len(elems))
	copy(arr, elems)
	return Value{kind: KindArray, arr: arr}
}

// Object returns an object value holding a copy of the given fields.
func Object(fields map[string]Value) Value {
	obj := make(map[string]Value, len(fields))
	for k, v := range fields {
		obj[k] = v
	}
	return Value{kind: KindObject, obj: obj}
}

// Kind returns the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload, or "" if the value is not a string.
func (v Value) Str() string {
	if v.kind == KindString {
		return v.s
	}
	return ""
}

// Int returns the integer payload. Floats are truncated; other kinds
// yield zero.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	default:
		return 0
	}
}

// Float returns the numeric payload as a float64, coercing integers.
// Non-numeric kinds yield zero.
func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return float64(v.i)
	default:
		return 0
	}
}

// Bool returns the boolean payload, or false for any other kind.
func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.b
	}
	return false
}

// Key returns the named field of an object, or null when the value is not
// an object or the key is absent.
func (v Value) Key(name string) Value {
	if v.kind != KindObject {
		return Value{}
	}
	return v.obj[name]
}

// Has reports whether an object value carries the named key.
func (v Value) Has(name string) bool {
	if v.kind != KindObject {
		return false
	}
	_, ok := v.obj[name]
	return ok
}

// Index returns the i-th element of an array, or null when out of range or
// the value is not an array.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}
	}
	return v.arr[i]
}

// Len returns the element count of an array or the field count of an
// object; zero for all other kinds.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Items returns a copy of an array's elements, nil for other kinds.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	items := make([]Value, len(v.arr))
	copy(items, v.arr)
	return items
}

// Keys returns an object's keys in sorted order, nil for other kinds.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports structural equality: both values produce the same
// canonical encoding.
func (v Value) Equal(other Value) bool {
	return bytes.Equal(v.Encode(), other.Encode())
}

// Decode parses JSON bytes into a Value.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decode json value: %w", err)
	}
	// Reject trailing garbage after the first value.
	if dec.More() {
		return Value{}, fmt.Errorf("decode json value: trailing data")
	}
	return fromAny(raw)
}

func fromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return fromNumber(t), nil
	case string:
		return String(t), nil
	case []any:
		arr := make([]Value, 0, len(t))
		for _, elem := range t {
			v, err := fromAny(elem)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, v)
		}
		return Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, elem := range t {
			v, err := fromAny(elem)
			if err != nil {
				return Value{}, err
			}
			obj[k] = v
		}
		return Value{kind: KindObject, obj: obj}, nil
	default:
		return Value{}, fmt.Errorf("decode json value: unsupported type %T", raw)
	}
}

// fromNumber applies the numeric sub-type rule: integral literals decode as
// int64, everything with a fraction or exponent (or overflowing int64)
// decodes as float64.
func fromNumber(n json.Number) Value {
	lit := n.String()
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i)
		}
	}
	// The literal came from the decoder, so Float64 can only fail on
	// range, where ParseFloat still hands back ±Inf, the closest float64.
	f, _ := n.Float64()
	return Float(f)
}

// Encode returns the canonical encoding of the value: object keys sorted,
// no insignificant whitespace.
func (v Value) Encode() []byte {
	var buf bytes.Buffer
	v.encodeTo(&buf)
	return buf.Bytes()
}

func (v Value) encodeTo(buf *bytes.Buffer) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b, err := json.Marshal(v.f)
		if err != nil {
			// NaN/Inf are not representable in JSON; encode as null
			// rather than corrupt the stream.
			buf.WriteString("null")
			return
		}
		buf.Write(b)
	case KindString:
		b, _ := json.Marshal(v.s)
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			elem.encodeTo(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			v.obj[k].encodeTo(buf)
		}
		buf.WriteByte('}')
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.Encode(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// String implements fmt.Stringer using the canonical encoding.
func (v Value) String() string {
	return string(v.Encode())
}
