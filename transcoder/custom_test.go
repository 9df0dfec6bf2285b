package transcoder

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/value"
)

const hostSchema = `{
	"type": "record", "name": "Host", "namespace": "net",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "addr", "type": ["null", {"type": "fixed", "name": "IPv4", "size": 4}], "default": null}
	]
}`

func ipv4Types() *CustomTypes {
	ct := NewCustomTypes()
	ct.Register("net.IPv4",
		func(v any) (any, error) {
			ip, ok := v.(net.IP)
			if !ok || ip.To4() == nil {
				return nil, fmt.Errorf("not an IPv4 address: %v", v)
			}
			return []byte(ip.To4()), nil
		},
		func(v any) (any, error) {
			switch x := v.(type) {
			case net.IP:
				if ip4 := x.To4(); ip4 != nil {
					return ip4, nil
				}
			case string:
				if ip4 := net.ParseIP(x).To4(); ip4 != nil {
					return ip4, nil
				}
			case []byte:
				if len(x) == net.IPv4len {
					return net.IP(append([]byte(nil), x...)), nil
				}
			}
			return nil, fmt.Errorf("cannot make an IPv4 address from %T", v)
		},
	)
	return ct
}

func TestCustom_Descriptor(t *testing.T) {
	c := NewCompiler(WithCustomTypes(ipv4Types()))
	m := model(t, c, hostSchema)

	addr, ok := m.Field("addr")
	require.True(t, ok)
	custom := addr.Type.Variants[1]
	assert.Equal(t, KindCustom, custom.Kind)
	assert.Equal(t, "net.IPv4", custom.TypeName())
	assert.Equal(t, KindFixed, custom.Elem.Kind)
	assert.Equal(t, custom.Elem.Fingerprint, custom.Fingerprint)
}

func TestCustom_RoundTrip(t *testing.T) {
	c := NewCompiler(WithCustomTypes(ipv4Types()))
	m := model(t, c, hostSchema)

	inst, err := m.New(map[string]any{"name": "gw", "addr": "10.0.0.1"})
	require.NoError(t, err)

	v, _ := inst.Get("addr")
	assert.Equal(t, value.Union{Index: 1, Value: value.Custom{Value: net.IP{10, 0, 0, 1}}}, v)

	data, err := m.EncodeValue(inst)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 'g', 'w', 0x02, 10, 0, 0, 1}, data, "custom types add no bytes")

	back, err := m.DecodeValue(data, nil)
	require.NoError(t, err)
	assert.True(t, back.Equal(inst))

	addr, err := back.Attribute("addr")
	require.NoError(t, err)
	assert.Equal(t, net.IP{10, 0, 0, 1}, addr)
}

func TestCustom_NullBypasses(t *testing.T) {
	c := NewCompiler(WithCustomTypes(ipv4Types()))
	m := model(t, c, hostSchema)

	inst, err := m.New(map[string]any{"name": "none"})
	require.NoError(t, err)
	data, err := m.EncodeValue(inst)
	require.NoError(t, err)

	back, err := m.DecodeValue(data, nil)
	require.NoError(t, err)
	addr, err := back.Attribute("addr")
	require.NoError(t, err)
	assert.Nil(t, addr)
}

func TestCustom_Errors(t *testing.T) {
	c := NewCompiler(WithCustomTypes(ipv4Types()))
	m := model(t, c, hostSchema)

	_, err := m.New(map[string]any{"name": "bad", "addr": 42})
	require.Error(t, err)
	assert.True(t, errors.IsCoercionError(err))

	d, _ := m.Field("addr")
	_, err = Encode(d.Type, value.Union{Index: 1, Value: value.Custom{Value: "not an ip"}})
	require.Error(t, err)
	assert.True(t, errorIs(err, errors.PhaseEncode, errors.KindCustomType), err.Error())
}

func TestCustom_IdentityHooks(t *testing.T) {
	ct := NewCustomTypes()
	ct.Register("ns.Code", nil, nil)
	d, err := NewCompiler(WithCustomTypes(ct)).Compile(parse(t, `{"type": "enum", "name": "ns.Code", "symbols": ["OK", "FAIL"]}`))
	require.NoError(t, err)
	require.Equal(t, KindCustom, d.Kind)

	v, err := Coerce(d, "FAIL")
	require.NoError(t, err)
	assert.Equal(t, value.Custom{Value: "FAIL"}, v)

	data, err := Encode(d, v)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, data)

	back, _, err := Decode(d, data)
	require.NoError(t, err)
	assert.Equal(t, value.Custom{Value: "FAIL"}, back)
}

func TestCustomTypes_Lookup(t *testing.T) {
	var nilTypes *CustomTypes
	_, ok := nilTypes.Lookup("x")
	assert.False(t, ok)

	ct := NewCustomTypes()
	first := ct.Register("ns.X", nil, nil)
	second := ct.Register("ns.X", nil, nil)
	got, ok := ct.Lookup("ns.X")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.NotSame(t, first, got)
}
