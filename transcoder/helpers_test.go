package transcoder

import (
	"testing"

	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/require"
)

const pairSchema = `{
	"type": "record", "name": "Pair", "namespace": "ns",
	"fields": [
		{"name": "k", "type": "string"},
		{"name": "v", "type": ["null", "long"], "default": null}
	]
}`

// parse parses with a private cache so tests can redeclare names.
func parse(t testing.TB, schema string) avro.Schema {
	t.Helper()
	s, err := avro.ParseWithCache(schema, "", &avro.SchemaCache{})
	require.NoError(t, err)
	return s
}

func compile(t testing.TB, schema string) *Descriptor {
	t.Helper()
	d, err := NewCompiler().Compile(parse(t, schema))
	require.NoError(t, err)
	return d
}

func model(t testing.TB, c *Compiler, value string) *Model {
	t.Helper()
	m, err := c.NewModel(parse(t, value), nil)
	require.NoError(t, err)
	return m
}
