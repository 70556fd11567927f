// Package payload models item configuration documents as an ordered JSON
// tree. Object members keep document order so that scans over a payload are
// deterministic.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value *Value
}

// Value is a JSON value. The zero value and a nil *Value are both null.
type Value struct {
	kind    Kind
	b       bool
	num     json.Number
	str     string
	elems   []*Value
	members []Member
}

// NewString returns a string value.
func NewString(s string) *Value { return &Value{kind: String, str: s} }

// NewArray returns an array value holding elems.
func NewArray(elems ...*Value) *Value { return &Value{kind: Array, elems: elems} }

// NewObject returns an object value holding members in order.
func NewObject(members ...Member) *Value { return &Value{kind: Object, members: members} }

// Kind returns the variant tag.
func (v *Value) Kind() Kind {
	if v == nil {
		return Null
	}
	return v.kind
}

// IsContainer reports whether v is an array or object.
func (v *Value) IsContainer() bool {
	k := v.Kind()
	return k == Array || k == Object
}

// Str returns the string held by v.
func (v *Value) Str() (string, bool) {
	if v.Kind() != String {
		return "", false
	}
	return v.str, true
}

// Float returns the number held by v.
func (v *Value) Float() (float64, bool) {
	if v.Kind() != Number {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// Elems returns the elements of an array value.
func (v *Value) Elems() []*Value {
	if v.Kind() != Array {
		return nil
	}
	return v.elems
}

// Members returns the members of an object value in document order.
func (v *Value) Members() []Member {
	if v.Kind() != Object {
		return nil
	}
	return v.members
}

// Get returns the first member named key, or nil.
func (v *Value) Get(key string) *Value {
	for _, m := range v.Members() {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

// Path follows a chain of object keys.
func (v *Value) Path(keys ...string) *Value {
	cur := v
	for _, k := range keys {
		cur = cur.Get(k)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// GetString returns the string member named key.
func (v *Value) GetString(key string) (string, bool) {
	return v.Get(key).Str()
}

// Children enumerates the direct children of a container. Array elements are
// keyed by their decimal index so arrays and objects walk the same way.
func (v *Value) Children() []Member {
	switch v.Kind() {
	case Object:
		return v.members
	case Array:
		out := make([]Member, len(v.elems))
		for i, e := range v.elems {
			out[i] = Member{Key: strconv.Itoa(i), Value: e}
		}
		return out
	default:
		return nil
	}
}

// Truthy follows JavaScript truthiness, which is how payload authors mark
// optional fields as present.
func (v *Value) Truthy() bool {
	switch v.Kind() {
	case Null:
		return false
	case Bool:
		return v.b
	case Number:
		f, err := v.num.Float64()
		return err == nil && f != 0
	case String:
		return v.str != ""
	default:
		return true
	}
}

// Parse decodes a JSON document preserving object member order.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode payload: trailing data after document")
	}
	return v, nil
}

// Unwrap returns the document embedded in a string payload. Non-string
// payloads are returned unchanged; a string that does not hold JSON yields
// null.
func Unwrap(v *Value) *Value {
	s, ok := v.Str()
	if !ok {
		return v
	}
	inner, err := Parse([]byte(s))
	if err != nil {
		return &Value{}
	}
	return inner
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case nil:
		return &Value{kind: Null}, nil
	case bool:
		return &Value{kind: Bool, b: t}, nil
	case json.Number:
		return &Value{kind: Number, num: t}, nil
	case string:
		return &Value{kind: String, str: t}, nil
	case json.Delim:
		switch t {
		case '[':
			arr := &Value{kind: Array}
			for dec.More() {
				e, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr.elems = append(arr.elems, e)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			obj := &Value{kind: Object}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T", kt)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.members = append(obj.members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// MarshalJSON encodes v with members in document order.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) encode(buf *bytes.Buffer) error {
	switch v.Kind() {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		buf.WriteString(v.num.String())
	case String:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON decodes data into v preserving member order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}
