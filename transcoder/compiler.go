package transcoder

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/hamba/avro/v2"

	"github.com/wippyai/avro-model/errors"
)

// Compiler builds descriptor trees from parsed schemas. Descriptors are
// cached per schema instance; records are resolved through the nested model
// Registry.
type Compiler struct {
	registry *Registry
	customs  *CustomTypes
	cache    sync.Map // avro.Schema -> *Descriptor
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRegistry shares a nested model registry between compilers.
func WithRegistry(r *Registry) Option {
	return func(c *Compiler) {
		c.registry = r
	}
}

// WithCustomTypes sets the custom type registry consulted for named schemas.
func WithCustomTypes(ct *CustomTypes) Option {
	return func(c *Compiler) {
		c.customs = ct
	}
}

func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.customs == nil {
		c.customs = NewCustomTypes()
	}
	return c
}

func (c *Compiler) Registry() *Registry { return c.registry }

func (c *Compiler) CustomTypes() *CustomTypes { return c.customs }

// Compile returns the descriptor for schema, building it on first use.
func (c *Compiler) Compile(schema avro.Schema) (*Descriptor, error) {
	if schema == nil {
		return nil, errors.InvalidSchema(nil, "schema cannot be nil")
	}
	if cached, ok := c.cache.Load(schema); ok {
		return cached.(*Descriptor), nil
	}

	c.registry.build.Lock()
	defer c.registry.build.Unlock()

	if cached, ok := c.cache.Load(schema); ok {
		return cached.(*Descriptor), nil
	}

	b := c.newBuild()
	d, err := b.compile(schema, nil)
	if err != nil {
		return nil, err
	}
	if err := c.registry.commit(b.created); err != nil {
		return nil, err
	}

	c.cache.Store(schema, d)
	return d, nil
}

// NewModel builds a model from a value record schema and an optional key
// record schema. Without a key the model is the registry's nested model for
// the value record, so repeated calls return the same *Model.
func (c *Compiler) NewModel(valueSchema, keySchema avro.Schema) (*Model, error) {
	vr, err := recordSchema(valueSchema, "value")
	if err != nil {
		return nil, err
	}

	if keySchema == nil {
		d, err := c.Compile(vr)
		if err != nil {
			return nil, err
		}
		if d.Kind != KindRecord {
			return nil, errors.InvalidSchema(nil, "record %s is registered as a custom type", vr.FullName())
		}
		return d.Model, nil
	}

	kr, err := recordSchema(keySchema, "key")
	if err != nil {
		return nil, err
	}

	c.registry.build.Lock()
	defer c.registry.build.Unlock()

	b := c.newBuild()
	m := b.newModel(vr)
	b.pending[c.registry.key(m.name)] = m
	if m.fields, err = b.fields(vr, nil, false); err != nil {
		return nil, err
	}

	m.keySchema = kr
	if m.keyFields, err = b.fields(kr, nil, true); err != nil {
		return nil, err
	}
	for _, kf := range m.keyFields {
		for _, vf := range m.fields {
			if vf.Name == kf.Name && vf.Type.Fingerprint != kf.Type.Fingerprint {
				return nil, errors.InvalidSchema([]string{kf.Name},
					"field %q is %s in the key schema but %s in the value schema",
					kf.Name, kf.Type.TypeName(), vf.Type.TypeName())
			}
		}
	}
	m.index()

	if err := c.registry.commit(b.created); err != nil {
		return nil, err
	}
	return m, nil
}

func recordSchema(s avro.Schema, role string) (*avro.RecordSchema, error) {
	if s == nil {
		return nil, errors.InvalidSchema(nil, "%s schema cannot be nil", role)
	}
	rs, ok := deref(s).(*avro.RecordSchema)
	if !ok {
		return nil, errors.InvalidSchema(nil, "%s schema must be a record, got %s", role, s.Type())
	}
	return rs, nil
}

func deref(s avro.Schema) avro.Schema {
	if ref, ok := s.(*avro.RefSchema); ok {
		return ref.Schema()
	}
	return s
}

// build is one compilation session. Records first seen during the session
// live in pending until the whole tree compiles, then get committed.
type build struct {
	c       *Compiler
	pending map[string]*Model
	created []*Model
}

func (c *Compiler) newBuild() *build {
	return &build{c: c, pending: make(map[string]*Model)}
}

func (b *build) compile(schema avro.Schema, path []string) (*Descriptor, error) {
	schema = deref(schema)

	base, err := b.compileBase(schema, path)
	if err != nil {
		return nil, err
	}

	named, ok := schema.(avro.NamedSchema)
	if !ok {
		return base, nil
	}
	ct, ok := b.c.customs.Lookup(named.FullName())
	if !ok {
		return base, nil
	}
	return &Descriptor{
		Kind:        KindCustom,
		Name:        named.FullName(),
		Custom:      ct,
		Elem:        base,
		Schema:      schema,
		Fingerprint: base.Fingerprint,
	}, nil
}

func (b *build) compileBase(schema avro.Schema, path []string) (*Descriptor, error) {
	switch s := schema.(type) {
	case *avro.NullSchema:
		return &Descriptor{Kind: KindNull, Schema: s, Fingerprint: s.Fingerprint()}, nil
	case *avro.PrimitiveSchema:
		return b.compilePrimitive(s, path)
	case *avro.FixedSchema:
		if s.Size() < 0 {
			return nil, errors.InvalidSchema(path, "fixed %s has negative size %d", s.FullName(), s.Size())
		}
		return &Descriptor{
			Kind:        KindFixed,
			Name:        s.FullName(),
			Aliases:     s.Aliases(),
			Size:        s.Size(),
			Schema:      s,
			Fingerprint: s.Fingerprint(),
		}, nil
	case *avro.EnumSchema:
		return b.compileEnum(s, path)
	case *avro.ArraySchema:
		elem, err := b.compile(s.Items(), appendPath(path, "[]"))
		if err != nil {
			return nil, err
		}
		return &Descriptor{Kind: KindArray, Elem: elem, Schema: s, Fingerprint: s.Fingerprint()}, nil
	case *avro.MapSchema:
		elem, err := b.compile(s.Values(), appendPath(path, "{}"))
		if err != nil {
			return nil, err
		}
		return &Descriptor{Kind: KindMap, Elem: elem, Schema: s, Fingerprint: s.Fingerprint()}, nil
	case *avro.UnionSchema:
		return b.compileUnion(s, path)
	case *avro.RecordSchema:
		return b.record(s, path)
	default:
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported schema: %T", schema).
			Build()
	}
}

func (b *build) compilePrimitive(s *avro.PrimitiveSchema, path []string) (*Descriptor, error) {
	kind, ok := primitiveKind(s)
	if !ok {
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported primitive type %q", s.Type()).
			Build()
	}
	return &Descriptor{Kind: kind, Schema: s, Fingerprint: s.Fingerprint()}, nil
}

// primitiveKind maps a primitive schema to its kind. Unknown or misplaced
// logical types fall back to the underlying type.
func primitiveKind(s *avro.PrimitiveSchema) (TypeKind, bool) {
	var logical avro.LogicalType
	if ls := s.Logical(); ls != nil {
		logical = ls.Type()
	}

	switch s.Type() {
	case avro.Null:
		return KindNull, true
	case avro.Boolean:
		return KindBoolean, true
	case avro.Int:
		if logical == avro.Date {
			return KindDate, true
		}
		return KindInt, true
	case avro.Long:
		switch logical {
		case avro.TimestampMillis:
			return KindTimestampMillis, true
		case avro.TimestampMicros:
			return KindTimestampMicros, true
		}
		return KindLong, true
	case avro.Float:
		return KindFloat, true
	case avro.Double:
		return KindDouble, true
	case avro.Bytes:
		return KindBytes, true
	case avro.String:
		if logical == avro.UUID {
			return KindUUID, true
		}
		return KindString, true
	}
	return 0, false
}

func (b *build) compileEnum(s *avro.EnumSchema, path []string) (*Descriptor, error) {
	symbols := s.Symbols()
	if len(symbols) == 0 {
		return nil, errors.InvalidSchema(path, "enum %s has no symbols", s.FullName())
	}
	index := make(map[string]int, len(symbols))
	for i, sym := range symbols {
		if _, dup := index[sym]; dup {
			return nil, errors.InvalidSchema(path, "enum %s declares symbol %q twice", s.FullName(), sym)
		}
		index[sym] = i
	}
	return &Descriptor{
		Kind:        KindEnum,
		Name:        s.FullName(),
		Aliases:     s.Aliases(),
		Symbols:     symbols,
		symbolIndex: index,
		EnumDefault: s.Default(),
		Schema:      s,
		Fingerprint: s.Fingerprint(),
	}, nil
}

func (b *build) compileUnion(s *avro.UnionSchema, path []string) (*Descriptor, error) {
	types := s.Types()
	if len(types) == 0 {
		return nil, errors.InvalidSchema(path, "union has no branches")
	}

	d := &Descriptor{
		Kind:        KindUnion,
		Variants:    make([]*Descriptor, 0, len(types)),
		BranchIndex: make(map[[32]byte]int, len(types)),
		Schema:      s,
		Fingerprint: s.Fingerprint(),
	}
	for i, t := range types {
		if t.Type() == avro.Null && i != 0 {
			return nil, errors.InvalidSchema(path, "null must be the first union branch, found at index %d", i)
		}
		v, err := b.compile(t, path)
		if err != nil {
			return nil, err
		}
		d.Variants = append(d.Variants, v)
		d.BranchIndex[v.Fingerprint] = i
	}
	d.nullableHead = d.Variants[0].Kind == KindNull
	return d, nil
}

func (b *build) record(s *avro.RecordSchema, path []string) (*Descriptor, error) {
	key := b.c.registry.key(s.FullName())
	fp := s.Fingerprint()

	if m, ok := b.pending[key]; ok {
		if m.fingerprint != fp {
			return nil, b.c.registry.mismatch(s.FullName(), m.fingerprint, fp)
		}
		return m.descriptor, nil
	}
	if e, ok := b.c.registry.lookup(key); ok {
		if e.fingerprint != fp {
			return nil, b.c.registry.mismatch(s.FullName(), e.fingerprint, fp)
		}
		return e.model.descriptor, nil
	}

	m := b.newModel(s)
	b.pending[key] = m

	fields, err := b.fields(s, path, false)
	if err != nil {
		return nil, err
	}
	m.fields = fields
	m.index()
	b.created = append(b.created, m)
	return m.descriptor, nil
}

func (b *build) newModel(s *avro.RecordSchema) *Model {
	m := &Model{
		name:        s.FullName(),
		valueSchema: s,
		fingerprint: s.Fingerprint(),
	}
	m.descriptor = &Descriptor{
		Kind:        KindRecord,
		Name:        m.name,
		Aliases:     s.Aliases(),
		Model:       m,
		Schema:      s,
		Fingerprint: m.fingerprint,
	}
	return m
}

func (b *build) fields(s *avro.RecordSchema, path []string, key bool) ([]*Field, error) {
	fields := make([]*Field, 0, len(s.Fields()))
	for _, f := range s.Fields() {
		fieldPath := appendPath(path, f.Name())
		d, err := b.compile(f.Type(), fieldPath)
		if err != nil {
			return nil, err
		}

		field := &Field{
			Name:    f.Name(),
			Aliases: f.Aliases(),
			Type:    d,
			Key:     key,
		}
		if f.HasDefault() {
			def, err := coerceDefault(d, f.Default(), fieldPath)
			if err != nil {
				return nil, errors.New(errors.PhaseCompile, errors.KindInvalidSchema).
					Path(fieldPath...).
					Cause(err).
					Detail("invalid default for field %q", f.Name()).
					Build()
			}
			field.Default = def
			field.HasDefault = true
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func appendPath(path []string, segment string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, segment)
}

// findGoField matches by: 1) avro:"name" tag, 2) case-insensitive, 3) snake_case.
func findGoField(goType reflect.Type, avroName string) (reflect.StructField, bool) {
	for i := 0; i < goType.NumField(); i++ {
		field := goType.Field(i)
		if !field.IsExported() {
			continue
		}

		if tag, _, _ := strings.Cut(field.Tag.Get("avro"), ","); tag != "" {
			if tag == "-" {
				continue
			}
			if tag == avroName {
				return field, true
			}
			continue
		}

		if strings.EqualFold(field.Name, avroName) {
			return field, true
		}

		if toSnakeCase(field.Name) == avroName {
			return field, true
		}
	}
	return reflect.StructField{}, false
}

func toSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// break before an upper rune that starts a new word: "UserID" -> "user_id"
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				result.WriteByte('_')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
