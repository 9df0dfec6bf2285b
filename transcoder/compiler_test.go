package transcoder

import (
	stderrors "errors"
	"reflect"
	"sync"
	"testing"

	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/avro-model/errors"
)

func TestCompile_Kinds(t *testing.T) {
	tests := []struct {
		schema   string
		kind     TypeKind
		typeName string
	}{
		{`"null"`, KindNull, "null"},
		{`"boolean"`, KindBoolean, "boolean"},
		{`"int"`, KindInt, "int"},
		{`"long"`, KindLong, "long"},
		{`"float"`, KindFloat, "float"},
		{`"double"`, KindDouble, "double"},
		{`"bytes"`, KindBytes, "bytes"},
		{`"string"`, KindString, "string"},
		{`{"type": "int", "logicalType": "date"}`, KindDate, "date"},
		{`{"type": "long", "logicalType": "timestamp-millis"}`, KindTimestampMillis, "timestamp-millis"},
		{`{"type": "long", "logicalType": "timestamp-micros"}`, KindTimestampMicros, "timestamp-micros"},
		{`{"type": "string", "logicalType": "uuid"}`, KindUUID, "uuid"},
		{`{"type": "fixed", "name": "ns.F4", "size": 4}`, KindFixed, "fixed(4)"},
		{`{"type": "enum", "name": "ns.Color", "symbols": ["RED", "GREEN"]}`, KindEnum, "ns.Color"},
		{`{"type": "array", "items": "string"}`, KindArray, "array<string>"},
		{`{"type": "map", "values": "long"}`, KindMap, "map<long>"},
		{`{"type": "array", "items": "null"}`, KindArray, "array<null>"},
		{`{"type": "record", "name": "ns.Gap", "fields": [{"name": "nothing", "type": "null"}]}`, KindRecord, "ns.Gap"},
		{`["null", "long"]`, KindUnion, "union[null,long]"},
		{pairSchema, KindRecord, "ns.Pair"},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			d := compile(t, tt.schema)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.typeName, d.TypeName())
		})
	}
}

func TestCompile_Cached(t *testing.T) {
	c := NewCompiler()
	s := parse(t, pairSchema)

	d1, err := c.Compile(s)
	require.NoError(t, err)
	d2, err := c.Compile(s)
	require.NoError(t, err)
	assert.Same(t, d1, d2)
}

func TestCompile_UnionNullMustBeFirst(t *testing.T) {
	_, err := NewCompiler().Compile(parse(t, `["long", "null"]`))
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))
	assert.Contains(t, err.Error(), "null must be the first union branch")
}

func TestCompile_UnionMetadata(t *testing.T) {
	d := compile(t, `["null", "string", {"type": "record", "name": "ns.R", "fields": []}]`)
	assert.True(t, d.Nullable())
	require.Len(t, d.Variants, 3)
	for i, v := range d.Variants {
		assert.Equal(t, i, d.BranchIndex[v.Fingerprint])
	}

	assert.False(t, compile(t, `["string", "long"]`).Nullable())
	assert.False(t, compile(t, `"long"`).Nullable())
}

func TestCompile_EnumSymbols(t *testing.T) {
	d := compile(t, `{"type": "enum", "name": "ns.Suit", "symbols": ["HEARTS", "SPADES"], "default": "SPADES"}`)
	i, ok := d.SymbolIndex("SPADES")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = d.SymbolIndex("CLUBS")
	assert.False(t, ok)
	assert.Equal(t, "SPADES", d.EnumDefault)
}

func TestCompile_NestedModelsRegistered(t *testing.T) {
	c := NewCompiler()
	d, err := c.Compile(parse(t, `{
		"type": "record", "name": "Outer", "namespace": "ns",
		"fields": [
			{"name": "pair", "type": `+pairSchema+`},
			{"name": "pairs", "type": {"type": "array", "items": "ns.Pair"}}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"ns.Outer", "ns.Pair"}, c.Registry().Names())
	pair, ok := c.Registry().Lookup("ns.Pair")
	require.True(t, ok)

	fields := d.Model.Fields()
	require.Len(t, fields, 2)
	assert.Same(t, pair, fields[0].Type.Model)
	assert.Same(t, pair, fields[1].Type.Elem.Model)
}

func TestCompile_FingerprintMismatch(t *testing.T) {
	c := NewCompiler()
	first := model(t, c, pairSchema)

	_, err := c.NewModel(parse(t, `{
		"type": "record", "name": "Pair", "namespace": "ns",
		"fields": [{"name": "k", "type": "string"}]
	}`), nil)
	require.Error(t, err)

	var mismatch *errors.FingerprintMismatchError
	require.True(t, stderrors.As(err, &mismatch))
	assert.Equal(t, "ns.Pair", mismatch.Name)
	assert.Equal(t, first.Fingerprint(), mismatch.Registered)
	assert.NotEqual(t, mismatch.Registered, mismatch.Attempted)

	still, ok := c.Registry().Lookup("ns.Pair")
	require.True(t, ok)
	assert.Same(t, first, still)
}

func TestCompile_FailedBuildRegistersNothing(t *testing.T) {
	c := NewCompiler()
	model(t, c, pairSchema)

	_, err := c.Compile(parse(t, `{
		"type": "record", "name": "Wrapper", "namespace": "ns",
		"fields": [
			{"name": "extra", "type": {"type": "record", "name": "Extra", "fields": [{"name": "x", "type": "int"}]}},
			{"name": "pair", "type": {"type": "record", "name": "Pair", "fields": [{"name": "other", "type": "int"}]}}
		]
	}`))
	require.Error(t, err)
	assert.False(t, c.Registry().Registered("ns.Wrapper"))
	assert.False(t, c.Registry().Registered("ns.Extra"))
	assert.Equal(t, 1, c.Registry().Len())
}

func TestCompile_SharedRegistry(t *testing.T) {
	reg := NewRegistry()
	a := NewCompiler(WithRegistry(reg))
	b := NewCompiler(WithRegistry(reg))

	m1 := model(t, a, pairSchema)
	m2 := model(t, b, pairSchema)
	assert.Same(t, m1, m2)
}

func TestCompile_ConcurrentRegistration(t *testing.T) {
	c := NewCompiler()

	const workers = 16
	models := make([]*Model, workers)
	errs := make([]error, workers)
	schemas := make([]avro.Schema, workers)
	for i := range schemas {
		schemas[i] = parse(t, pairSchema)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			models[i], errs[i] = c.NewModel(schemas[i], nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, models[0], models[i])
	}
	assert.Equal(t, 1, c.Registry().Len())
}

func TestCompile_RecursiveRecord(t *testing.T) {
	c := NewCompiler()
	m := model(t, c, `{
		"type": "record", "name": "Node", "namespace": "ns",
		"fields": [
			{"name": "value", "type": "long"},
			{"name": "next", "type": ["null", "ns.Node"], "default": null}
		]
	}`)

	next, ok := m.Field("next")
	require.True(t, ok)
	assert.Same(t, m, next.Type.Variants[1].Model)
}

func TestRegistry_NamespacePrefix(t *testing.T) {
	reg := NewRegistry(WithNamespacePrefix("com.acme."))
	c := NewCompiler(WithRegistry(reg))
	model(t, c, `{"type": "record", "name": "com.acme.Order", "fields": [{"name": "id", "type": "string"}]}`)

	assert.Equal(t, []string{"Order"}, reg.Names())
	assert.True(t, reg.Registered("com.acme.Order"))
	assert.True(t, reg.Registered("Order"))
}

func TestRegistry_RegisterOrValidate(t *testing.T) {
	m := model(t, NewCompiler(), pairSchema)

	reg := NewRegistry()
	got, err := reg.RegisterOrValidate(m)
	require.NoError(t, err)
	assert.Same(t, m, got)

	other := model(t, NewCompiler(), pairSchema)
	got, err = reg.RegisterOrValidate(other)
	require.NoError(t, err)
	assert.Same(t, m, got, "first registration wins")

	reg.Clear()
	assert.Equal(t, 0, reg.Len())
	assert.False(t, reg.Registered("ns.Pair"))
}

func TestRegistry_RejectsKeyedModel(t *testing.T) {
	c := NewCompiler()
	m, err := c.NewModel(
		parse(t, `{"type": "record", "name": "ns.V", "fields": [{"name": "a", "type": "long"}]}`),
		parse(t, `{"type": "record", "name": "ns.K", "fields": [{"name": "id", "type": "string"}]}`),
	)
	require.NoError(t, err)

	_, err = NewRegistry().RegisterOrValidate(m)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, &errors.Error{Phase: errors.PhaseRegistry, Kind: errors.KindUnsupported}))
}

func TestFindGoField(t *testing.T) {
	type sample struct {
		UserID   string
		Name     string
		Tagged   int `avro:"count"`
		Skipped  int `avro:"-"`
		internal int
	}
	typ := reflect.TypeOf(sample{})

	tests := []struct {
		avroName string
		want     string
		found    bool
	}{
		{"user_id", "UserID", true},
		{"userid", "UserID", true},
		{"name", "Name", true},
		{"count", "Tagged", true},
		{"tagged", "", false},
		{"skipped", "", false},
		{"internal", "", false},
	}
	for _, tt := range tests {
		f, ok := findGoField(typ, tt.avroName)
		assert.Equal(t, tt.found, ok, tt.avroName)
		if ok {
			assert.Equal(t, tt.want, f.Name, tt.avroName)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"UserID":     "user_id",
		"HTTPServer": "http_server",
		"name":       "name",
		"CreatedAt":  "created_at",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}
