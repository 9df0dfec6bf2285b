package schemaregistry

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/avro-model/errors"
)

const (
	pairV1 = `{"type": "record", "name": "ns.Pair", "fields": [{"name": "k", "type": "string"}]}`
	pairV2 = `{"type": "record", "name": "ns.Pair", "fields": [
		{"name": "k", "type": "string"},
		{"name": "v", "type": ["null", "long"], "default": null}
	]}`
)

func parse(t testing.TB, schema string) avro.Schema {
	t.Helper()
	s, err := avro.ParseWithCache(schema, "", &avro.SchemaCache{})
	require.NoError(t, err)
	return s
}

func TestMemory_Register(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	v1, v2 := parse(t, pairV1), parse(t, pairV2)

	id1, err := m.Register(ctx, "pairs-value", v1)
	require.NoError(t, err)
	assert.Equal(t, 1, id1)

	again, err := m.Register(ctx, "pairs-value", parse(t, pairV1))
	require.NoError(t, err)
	assert.Equal(t, id1, again, "same schema keeps its id")

	id2, err := m.Register(ctx, "pairs-value", v2)
	require.NoError(t, err)
	assert.Equal(t, 2, id2)

	other, err := m.Register(ctx, "other-value", v1)
	require.NoError(t, err)
	assert.Equal(t, id1, other, "ids are shared across subjects")

	assert.Equal(t, 2, m.Len())
	if diff := cmp.Diff([]string{"other-value", "pairs-value"}, m.Subjects()); diff != "" {
		t.Errorf("Subjects() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2}, m.Versions("pairs-value")); diff != "" {
		t.Errorf("Versions() mismatch (-want +got):\n%s", diff)
	}
}

func TestMemory_DefaultsDistinguishSchemas(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	plain := parse(t, pairV1)
	defaulted := parse(t, `{"type": "record", "name": "ns.Pair", "fields": [{"name": "k", "type": "string", "default": "x"}]}`)
	require.Equal(t, plain.Fingerprint(), defaulted.Fingerprint())

	id1, err := m.Register(ctx, "pairs-value", plain)
	require.NoError(t, err)
	id2, err := m.Register(ctx, "pairs-value", defaulted)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	got, err := m.Fetch(ctx, id2)
	require.NoError(t, err)
	assert.True(t, got.(*avro.RecordSchema).Fields()[0].HasDefault())

	_, err = m.Register(ctx, "pairs-value", nil)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseRegistry, Kind: errors.KindInvalidData})
}

func TestMemory_Fetch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s := parse(t, pairV1)

	id, err := m.Register(ctx, "pairs-value", s)
	require.NoError(t, err)

	got, err := m.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, s.Fingerprint(), got.Fingerprint())

	for _, bad := range []int{0, -1, 2} {
		_, err := m.Fetch(ctx, bad)
		require.Error(t, err)
		assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseRegistry, Kind: errors.KindNotFound})
	}
}

func TestMemory_Lookup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Register(ctx, "pairs-value", parse(t, pairV1))
	require.NoError(t, err)

	got, err := m.Lookup(ctx, "pairs-value", parse(t, pairV1))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = m.Lookup(ctx, "pairs-value", parse(t, pairV2))
	assert.Error(t, err)
	_, err = m.Lookup(ctx, "missing", parse(t, pairV1))
	assert.Error(t, err)
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	_, err := m.Register(ctx, "s", parse(t, pairV1))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = m.Fetch(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
