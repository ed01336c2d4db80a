package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// IRValue is a sealed interface representing operand and property values.
// Only IRNull, IRString, IRInt, IRBool, IRArray, and IRObject implement this.
// NO IRFloat - floats are forbidden so shapes and traces stay deterministic.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull is the value a load observes when the property is not present.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64, never float64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents an operand object: property names mapped to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// O builds a single-entry object, handy in tests: O("x", IRInt(1)).
func O(key string, value IRValue) IRObject {
	return IRObject{key: value}
}

// Clone returns a shallow copy of the object.
// Stores write into the clone so the caller's operand is never mutated.
func (obj IRObject) Clone() IRObject {
	out := make(IRObject, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs outside the BMP.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler for IRObject with sorted keys.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for golden
// snapshots and shape identity.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalIRValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalIRValue marshals an IRValue to JSON bytes.
func MarshalIRValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return []byte("null"), nil
	case IRString:
		return json.Marshal(string(val))
	case IRInt:
		return json.Marshal(int64(val))
	case IRBool:
		return json.Marshal(bool(val))
	case IRArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			elemBytes, err := MarshalIRValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(elemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case IRObject:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}

// FromNative converts a decoded YAML/JSON value into an IRValue.
// YAML decodes integers as int and may hand back float64 for numbers
// written with an exponent; integral floats are accepted, others rejected.
func FromNative(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case int:
		return IRInt(int64(val)), nil
	case int64:
		return IRInt(val), nil
	case float64:
		if val == float64(int64(val)) {
			return IRInt(int64(val)), nil
		}
		return nil, fmt.Errorf("floats are forbidden in operands: %v", val)
	case bool:
		return IRBool(val), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		return ObjectFromNative(val)
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// ObjectFromNative converts a decoded map into an IRObject.
// Keys are NFC normalized; two keys that normalize to the same name are
// rejected.
func ObjectFromNative(m map[string]any) (IRObject, error) {
	obj := make(IRObject, len(m))
	for k, elem := range m {
		irElem, err := FromNative(elem)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		key := norm.NFC.String(k)
		if _, dup := obj[key]; dup {
			return nil, fmt.Errorf("field %q: duplicate key after NFC normalization", k)
		}
		obj[key] = irElem
	}
	return obj, nil
}
