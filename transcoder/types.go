package transcoder

import (
	"strconv"
	"strings"

	"github.com/hamba/avro/v2"

	"github.com/wippyai/avro-model/transcoder/internal/types"
	"github.com/wippyai/avro-model/value"
)

type TypeKind = types.Kind

const (
	KindNull            = types.KindNull
	KindBoolean         = types.KindBoolean
	KindInt             = types.KindInt
	KindLong            = types.KindLong
	KindFloat           = types.KindFloat
	KindDouble          = types.KindDouble
	KindBytes           = types.KindBytes
	KindString          = types.KindString
	KindFixed           = types.KindFixed
	KindEnum            = types.KindEnum
	KindDate            = types.KindDate
	KindTimestampMillis = types.KindTimestampMillis
	KindTimestampMicros = types.KindTimestampMicros
	KindUUID            = types.KindUUID
	KindArray           = types.KindArray
	KindMap             = types.KindMap
	KindRecord          = types.KindRecord
	KindUnion           = types.KindUnion
	KindCustom          = types.KindCustom
)

// Descriptor is one compiled node of a schema tree. Descriptors are built
// once per schema, cached by the Compiler and never mutated afterwards, so
// they are safe to share across goroutines.
type Descriptor struct {
	Schema avro.Schema

	// Elem is the item type of an array, the value type of a map, and the
	// underlying representation of a custom type.
	Elem *Descriptor

	// Model is the nested model of a record. Recursive records point back
	// to a model that is still being built, never to an inline subtree.
	Model *Model

	Custom *CustomType

	// BranchIndex maps a variant's schema fingerprint to its position.
	BranchIndex map[[32]byte]int

	symbolIndex map[string]int

	Name         string
	EnumDefault  string
	Symbols      []string
	Aliases      []string
	Variants     []*Descriptor
	Fingerprint  [32]byte
	Size         int
	Kind         TypeKind
	nullableHead bool
}

// TypeName renders the descriptor the way errors name expected types:
// "long", "fixed(4)", "array<string>", "union[null,long]", or the full name
// of a record or enum.
func (d *Descriptor) TypeName() string {
	switch d.Kind {
	case KindFixed:
		return "fixed(" + strconv.Itoa(d.Size) + ")"
	case KindEnum, KindRecord:
		return d.Name
	case KindArray:
		return "array<" + d.Elem.TypeName() + ">"
	case KindMap:
		return "map<" + d.Elem.TypeName() + ">"
	case KindUnion:
		names := make([]string, len(d.Variants))
		for i, v := range d.Variants {
			names[i] = v.TypeName()
		}
		return "union[" + strings.Join(names, ",") + "]"
	case KindCustom:
		return d.Name
	}
	return d.Kind.String()
}

// SymbolIndex returns the position of an enum symbol.
func (d *Descriptor) SymbolIndex(symbol string) (int, bool) {
	i, ok := d.symbolIndex[symbol]
	return i, ok
}

// Nullable reports whether d is a union whose first variant is null.
func (d *Descriptor) Nullable() bool {
	return d.nullableHead
}

// Field is one attribute of a model: a name, its compiled type and the
// default resolved from the schema at build time.
type Field struct {
	Default    value.Value
	Type       *Descriptor
	Name       string
	Aliases    []string
	HasDefault bool
	Key        bool
}

func (f *Field) matches(name string) bool {
	if f.Name == name {
		return true
	}
	for _, a := range f.Aliases {
		if a == name {
			return true
		}
	}
	return false
}
