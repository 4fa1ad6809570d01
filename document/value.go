package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Value is a JSON value. The set of implementations is closed.
type Value interface {
	isValue()
}

// Object is a JSON object.
type Object map[string]Value

// Array is a JSON array.
type Array []Value

// String is a JSON string.
type String string

// Bool is a JSON boolean.
type Bool bool

// Null is the JSON null literal.
type Null struct{}

// Record is a structured record identifier as handed out by a store.
// It only appears in documents that have not been normalized yet.
type Record RecordID

func (Object) isValue() {}
func (Array) isValue()  {}
func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue()   {}
func (Null) isValue()   {}
func (Record) isValue() {}

// MarshalJSON implements json.Marshaler.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON renders the record as its "collection:id" form.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(RecordID(r).String())
}

// Keys returns the object's keys in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the object.
func (o Object) Clone() Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Parse decodes a single JSON value. Trailing data after the value is an error.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after value", ErrInvalidJSON)
	}
	return FromInterface(raw)
}

// ParseObject decodes a JSON object.
func ParseObject(data []byte) (Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrInvalidJSON, TypeName(v))
	}
	return obj, nil
}

// Marshal encodes v as JSON.
func Marshal(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// FromInterface converts the output of encoding/json (decoded with
// UseNumber) into a Value.
func FromInterface(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return Number(x), nil
	case float64:
		return NumberFromFloat(x), nil
	case int:
		return NumberFromInt(int64(x)), nil
	case int64:
		return NumberFromInt(x), nil
	case []interface{}:
		arr := make(Array, len(x))
		for i, elem := range x {
			v, err := FromInterface(elem)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case map[string]interface{}:
		obj := make(Object, len(x))
		for k, elem := range x {
			v, err := FromInterface(elem)
			if err != nil {
				return nil, err
			}
			obj[k] = v
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidJSON, raw)
	}
}

// TypeName names the JSON type of v.
func TypeName(v Value) string {
	switch v.(type) {
	case Object:
		return "object"
	case Array:
		return "array"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Null, nil:
		return "null"
	case Record:
		return "record"
	default:
		return fmt.Sprintf("%T", v)
	}
}
