package value

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Kind discriminates the closed set of intermediate values.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindLong
	KindFloat
	KindBytes
	KindArray
	KindMap
	KindUnion
	KindRecord
	KindCustom
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindLong:   "long",
	KindFloat:  "float",
	KindBytes:  "bytes",
	KindArray:  "array",
	KindMap:    "map",
	KindUnion:  "union",
	KindRecord: "record",
	KindCustom: "custom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a schema-agnostic intermediate value. The implementations in this
// package are the only ones; the interface is sealed.
type Value interface {
	Kind() Kind
	sealed()
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Long holds every integral value: int, long, date and timestamps.
type Long int64

// Float holds both float and double values.
type Float float64

// Bytes holds strings, bytes, fixed and enum symbols.
type Bytes []byte

// Array is an ordered sequence of values.
type Array []Value

// Map is a string-keyed mapping; key order carries no meaning.
type Map map[string]Value

// Union tags a value with the index of the branch it was resolved to.
type Union struct {
	Value Value
	Index int
}

// Record is a handle to a nested instance's attribute storage.
type Record struct {
	Attributes Storage
}

// Custom wraps an opaque host value produced by a custom type hook.
type Custom struct {
	Value any
}

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Long) Kind() Kind   { return KindLong }
func (Float) Kind() Kind  { return KindFloat }
func (Bytes) Kind() Kind  { return KindBytes }
func (Array) Kind() Kind  { return KindArray }
func (Map) Kind() Kind    { return KindMap }
func (Union) Kind() Kind  { return KindUnion }
func (Record) Kind() Kind { return KindRecord }
func (Custom) Kind() Kind { return KindCustom }

func (Null) sealed()   {}
func (Bool) sealed()   {}
func (Long) sealed()   {}
func (Float) sealed()  {}
func (Bytes) sealed()  {}
func (Array) sealed()  {}
func (Map) sealed()    {}
func (Union) sealed()  {}
func (Record) sealed() {}
func (Custom) sealed() {}

// String returns a Bytes value holding s.
func String(s string) Bytes { return Bytes(s) }

// True and False are the two boolean values.
const (
	True  = Bool(true)
	False = Bool(false)
)

// Equal reports whether a and b are structurally equal. Records compare by
// their attribute contents, customs by deep equality of the wrapped value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Null:
		return true
	case Bool:
		return x == b.(Bool)
	case Long:
		return x == b.(Long)
	case Float:
		y := b.(Float)
		// NaN payloads round-trip bit-for-bit, so compare them as equal
		return x == y || (x != x && y != y)
	case Bytes:
		return bytes.Equal(x, b.(Bytes))
	case Array:
		y := b.(Array)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Map:
		y := b.(Map)
		if len(x) != len(y) {
			return false
		}
		for k, v := range x {
			w, ok := y[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case Union:
		y := b.(Union)
		return x.Index == y.Index && Equal(x.Value, y.Value)
	case Record:
		return storageEqual(x.Attributes, b.(Record).Attributes)
	case Custom:
		return reflect.DeepEqual(x.Value, b.(Custom).Value)
	}
	return false
}

func storageEqual(a, b Storage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Len() != b.Len() {
		return false
	}
	equal := true
	a.Range(func(name string, v Value) bool {
		w, ok := b.Get(name)
		if !ok || !Equal(v, w) {
			equal = false
		}
		return equal
	})
	return equal
}

// Format renders v in a compact debugging notation, e.g.
// Record{k: String("x"), v: Union(1, Long(5))}.
func Format(v Value) string {
	var b strings.Builder
	format(&b, v)
	return b.String()
}

func format(b *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil:
		b.WriteString("<nil>")
	case Null:
		b.WriteString("Null")
	case Bool:
		if x {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case Long:
		fmt.Fprintf(b, "Long(%d)", int64(x))
	case Float:
		fmt.Fprintf(b, "Float(%g)", float64(x))
	case Bytes:
		fmt.Fprintf(b, "String(%q)", []byte(x))
	case Array:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, e)
		}
		b.WriteByte(']')
	case Map:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%q: ", k)
			format(b, x[k])
		}
		b.WriteByte('}')
	case Union:
		fmt.Fprintf(b, "Union(%d, ", x.Index)
		format(b, x.Value)
		b.WriteByte(')')
	case Record:
		b.WriteString("Record{")
		if x.Attributes != nil {
			first := true
			x.Attributes.Range(func(name string, v Value) bool {
				if !first {
					b.WriteString(", ")
				}
				first = false
				b.WriteString(name)
				b.WriteString(": ")
				format(b, v)
				return true
			})
		}
		b.WriteByte('}')
	case Custom:
		fmt.Fprintf(b, "Custom(%v)", x.Value)
	}
}
