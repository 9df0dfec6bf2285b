package transcoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/value"
)

const (
	orderSchema = `{
		"type": "record", "name": "Order", "namespace": "shop",
		"fields": [
			{"name": "id", "type": "string"},
			{"name": "amount", "type": "double"},
			{"name": "note", "type": ["null", "string"], "default": null}
		]
	}`
	orderKeySchema = `{
		"type": "record", "name": "OrderKey", "namespace": "shop",
		"fields": [
			{"name": "id", "type": "string"},
			{"name": "region", "type": "string", "default": "eu"}
		]
	}`
)

func keyedModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewCompiler().NewModel(parse(t, orderSchema), parse(t, orderKeySchema))
	require.NoError(t, err)
	return m
}

func TestModel_Metadata(t *testing.T) {
	m := keyedModel(t)

	assert.Equal(t, "shop.Order", m.Name())
	assert.True(t, m.HasKey())
	assert.Equal(t, "shop.OrderKey", m.KeySchema().FullName())
	assert.Equal(t, m.ValueSchema().Fingerprint(), m.Fingerprint())

	var names []string
	for _, f := range m.Attributes() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"id", "region", "amount", "note"}, names)

	id, ok := m.Field("id")
	require.True(t, ok)
	assert.False(t, id.Key, "value fields shadow key fields")

	region, ok := m.Field("region")
	require.True(t, ok)
	assert.True(t, region.Key)

	_, ok = m.Field("missing")
	assert.False(t, ok)
}

func TestModel_KeyValueConflict(t *testing.T) {
	_, err := NewCompiler().NewModel(parse(t, orderSchema), parse(t, `{
		"type": "record", "name": "shop.OrderKey",
		"fields": [{"name": "id", "type": "long"}]
	}`))
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))
}

func TestModel_NewRejectsUnknown(t *testing.T) {
	m := model(t, NewCompiler(), pairSchema)
	_, err := m.New(map[string]any{"k": "x", "zeta": 1, "alpha": 2})
	require.Error(t, err)
	assert.True(t, errorIs(err, errors.PhaseCoerce, errors.KindFieldUnknown))
	assert.Contains(t, err.Error(), "alpha")
}

func TestModel_KeyAndValue(t *testing.T) {
	m := keyedModel(t)
	inst, err := m.New(map[string]any{"id": "o-1", "amount": 9.5})
	require.NoError(t, err)

	key, err := m.EncodeKey(inst)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06, 'o', '-', '1', 0x04, 'e', 'u'}, key)

	val, err := m.EncodeValue(inst)
	require.NoError(t, err)

	decodedKey, err := m.DecodeKey(key, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, decodedKey.Len())

	msg, err := m.DecodeMessage(key, val, nil, nil)
	require.NoError(t, err)
	assert.True(t, msg.Equal(inst))

	host, err := msg.ToMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "o-1", "region": "eu", "amount": 9.5, "note": nil}, host)
}

func TestModel_DecodeMessageKeyWins(t *testing.T) {
	m := keyedModel(t)
	valueSide, err := m.New(map[string]any{"id": "from-value", "amount": 1.0})
	require.NoError(t, err)
	keySide, err := m.New(map[string]any{"id": "from-key", "amount": 1.0})
	require.NoError(t, err)

	val, err := m.EncodeValue(valueSide)
	require.NoError(t, err)
	key, err := m.EncodeKey(keySide)
	require.NoError(t, err)

	msg, err := m.DecodeMessage(key, val, nil, nil)
	require.NoError(t, err)
	id, err := msg.Attribute("id")
	require.NoError(t, err)
	assert.Equal(t, "from-key", id)
}

func TestModel_DecodeValueFillsKeyAttributes(t *testing.T) {
	m := keyedModel(t)
	inst, err := m.New(map[string]any{"id": "o-2", "amount": 1.0})
	require.NoError(t, err)
	val, err := m.EncodeValue(inst)
	require.NoError(t, err)

	decoded, err := m.DecodeValue(val, nil)
	require.NoError(t, err)
	region, err := decoded.Attribute("region")
	require.NoError(t, err)
	assert.Equal(t, "eu", region)
}

func TestModel_NoKey(t *testing.T) {
	m := model(t, NewCompiler(), pairSchema)
	inst, err := m.New(map[string]any{"k": "x"})
	require.NoError(t, err)

	_, err = m.EncodeKey(inst)
	assert.True(t, errorIs(err, errors.PhaseEncode, errors.KindUnsupported))
	_, err = m.DecodeKey([]byte{0x00}, nil)
	assert.True(t, errorIs(err, errors.PhaseDecode, errors.KindUnsupported))
	_, err = m.DecodeMessage([]byte{0x00}, []byte{0x02, 0x78, 0x00}, nil, nil)
	assert.True(t, errorIs(err, errors.PhaseDecode, errors.KindUnsupported))
}

func TestModel_EncodeForeignInstance(t *testing.T) {
	c := NewCompiler()
	pair := model(t, c, pairSchema)
	order := model(t, c, orderSchema)

	inst, err := order.New(map[string]any{"id": "x", "amount": 1})
	require.NoError(t, err)
	_, err = pair.EncodeValue(inst)
	assert.True(t, errorIs(err, errors.PhaseEncode, errors.KindTypeMismatch))

	_, err = pair.EncodeValue(nil)
	assert.True(t, errorIs(err, errors.PhaseEncode, errors.KindInvalidData))
}

func TestModel_MissingAttributeEncodesAsNull(t *testing.T) {
	m := model(t, NewCompiler(), pairSchema)
	inst := newInstance(m)
	inst.Set("k", value.String("x"))

	data, err := m.EncodeValue(inst)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x78, 0x00}, data)
}

func TestInstance_AssignAndAttribute(t *testing.T) {
	m := model(t, NewCompiler(), orderSchema)
	inst, err := m.New(map[string]any{"id": "o-3", "amount": 2})
	require.NoError(t, err)

	require.NoError(t, inst.Assign("note", "gift"))
	note, err := inst.Attribute("note")
	require.NoError(t, err)
	assert.Equal(t, "gift", note)

	err = inst.Assign("amount", "lots")
	require.Error(t, err)
	assert.Equal(t, []string{"amount"}, err.(*errors.Error).Path)
	amount, err := inst.Attribute("amount")
	require.NoError(t, err)
	assert.Equal(t, 2.0, amount, "failed assignment leaves the old value")

	assert.True(t, errorIs(inst.Assign("nope", 1), errors.PhaseCoerce, errors.KindFieldUnknown))
	_, err = inst.Attribute("nope")
	assert.True(t, errorIs(err, errors.PhaseCoerce, errors.KindFieldUnknown))
}

func TestInstance_CloneIsDeep(t *testing.T) {
	m := model(t, NewCompiler(), `{
		"type": "record", "name": "ns.Bag",
		"fields": [{"name": "items", "type": {"type": "array", "items": "string"}}]
	}`)
	inst, err := m.New(map[string]any{"items": []string{"a"}})
	require.NoError(t, err)

	cp := inst.Clone()
	assert.True(t, cp.Equal(inst))

	require.NoError(t, cp.Assign("items", []string{"b", "c"}))
	assert.False(t, cp.Equal(inst))

	items, err := inst.Attribute("items")
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, items)
}

func TestInstance_EqualAcrossModels(t *testing.T) {
	a := model(t, NewCompiler(), pairSchema)
	b := model(t, NewCompiler(), pairSchema)

	ia, err := a.New(map[string]any{"k": "x"})
	require.NoError(t, err)
	ib, err := b.New(map[string]any{"k": "x"})
	require.NoError(t, err)

	assert.False(t, ia.Equal(ib))
	assert.True(t, ia.Equal(ia.Clone()))
	assert.True(t, (*Instance)(nil).Equal(nil))
}
