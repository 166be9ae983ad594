package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Kind identifies which JSON variant a Value holds
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
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
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an immutable JSON tree. Documents stored in a collection are
// object Values; numbers keep their original literal so nothing is lost
// between parse, log append and replay.
type Value struct {
	kind   Kind
	b      bool
	s      string // string content, or the number literal
	items  []Value
	keys   []string // object field order
	fields map[string]Value
}

// Member is a single object field, used to build objects in order
type Member struct {
	Key   string
	Value Value
}

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func String(s string) Value { return Value{kind: KindString, s: s} }

// Number builds a number from a float. Use ParseNumber to keep an exact literal.
func Number(f float64) Value {
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// ParseNumber validates a JSON number literal and wraps it.
func ParseNumber(literal string) (Value, error) {
	if !json.Valid([]byte(literal)) {
		return Value{}, fmt.Errorf("%w: invalid number %q", ErrMalformedInput, literal)
	}
	if _, err := strconv.ParseFloat(literal, 64); err != nil {
		return Value{}, fmt.Errorf("%w: invalid number %q", ErrMalformedInput, literal)
	}
	return Value{kind: KindNumber, s: literal}, nil
}

func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value(nil), items...)}
}

// Object builds an object from members; a repeated key keeps its first
// position and its last value.
func Object(members ...Member) Value {
	v := Value{kind: KindObject, fields: make(map[string]Value, len(members))}
	for _, m := range members {
		v.setField(m.Key, m.Value)
	}
	return v
}

func (v *Value) setField(key string, val Value) {
	if _, exists := v.fields[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = val
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsObject() bool { return v.kind == KindObject }

// Str returns the string content when v is a JSON string.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// BoolValue returns the boolean when v is a JSON boolean.
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Float returns the number as float64 when v is a JSON number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Items returns a copy of the array elements.
func (v Value) Items() []Value {
	return append([]Value(nil), v.items...)
}

// Keys returns the object's field names in document order.
func (v Value) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Len is the number of array elements or object fields.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.keys)
	default:
		return 0
	}
}

// Field projects a single top-level field of an object.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// WithField returns a copy of the object with key set to val.
func (v Value) WithField(key string, val Value) Value {
	if v.kind != KindObject {
		return v
	}
	out := Value{
		kind:   KindObject,
		keys:   append([]string(nil), v.keys...),
		fields: make(map[string]Value, len(v.fields)+1),
	}
	for k, f := range v.fields {
		out.fields[k] = f
	}
	out.setField(key, val)
	return out
}

// Equal reports deep equality. Object field order is ignored and numbers
// compare by value.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindNumber:
		if v.s == other.s {
			return true
		}
		a, okA := v.Float()
		b, okB := other.Float()
		return okA && okB && a == b
	case KindArray:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for k, f := range v.fields {
			o, ok := other.fields[k]
			if !ok || !f.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// Parse decodes exactly one JSON value from data.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec, 0)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("%w: unexpected data after JSON value", ErrMalformedInput)
	}
	return v, nil
}

// MustParse is Parse for literals known to be valid; it panics otherwise.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

// MaxDepth bounds array and object nesting, matching encoding/json.
const MaxDepth = 10000

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Value{kind: KindNumber, s: t.String()}, nil
	case string:
		return String(t), nil
	case json.Delim:
		if depth >= MaxDepth {
			return Value{}, fmt.Errorf("exceeded max nesting depth of %d", MaxDepth)
		}
		switch t {
		case '[':
			arr := Value{kind: KindArray}
			for dec.More() {
				item, err := decodeValue(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				arr.items = append(arr.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return arr, nil
		case '{':
			obj := Object()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %T, not string", keyTok)
				}
				field, err := decodeValue(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				obj.setField(key, field)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return obj, nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// MarshalJSON renders v compactly, objects in document order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.s)
	case KindString:
		encoded, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(encoded)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, key := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encoded, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(encoded)
			buf.WriteByte(':')
			if err := v.fields[key].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode value of kind %s", v.kind)
	}
	return nil
}

func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid %s>", v.kind)
	}
	return string(data)
}

// Interface converts v into plain Go values (map[string]interface{},
// []interface{}, int64 or float64, string, bool, nil) for generic encoders.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if i, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	case KindString:
		return v.s
	case KindArray:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// ValueOf converts plain Go values, as produced by encoding/json or msgpack
// decoders, into a Value. Map keys are ordered lexically.
func ValueOf(in interface{}) (Value, error) {
	switch x := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		return ParseNumber(x.String())
	case float32:
		return floatValue(float64(x))
	case float64:
		return floatValue(x)
	case int, int8, int16, int32, int64:
		return Value{kind: KindNumber, s: strconv.FormatInt(reflect.ValueOf(x).Int(), 10)}, nil
	case uint, uint8, uint16, uint32, uint64:
		return Value{kind: KindNumber, s: strconv.FormatUint(reflect.ValueOf(x).Uint(), 10)}, nil
	case []interface{}:
		arr := Value{kind: KindArray, items: make([]Value, 0, len(x))}
		for _, item := range x {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			arr.items = append(arr.items, v)
		}
		return arr, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := Object()
		for _, k := range keys {
			v, err := ValueOf(x[k])
			if err != nil {
				return Value{}, err
			}
			obj.setField(k, v)
		}
		return obj, nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported type %T", ErrMalformedInput, in)
	}
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: %v is not a JSON number", ErrMalformedInput, f)
	}
	return Number(f), nil
}
