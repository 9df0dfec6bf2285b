package transcoder

import (
	"sort"

	"github.com/hamba/avro/v2"

	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/transcoder/internal/binary"
)

// Model describes a message: a required value record and an optional key
// record. Attribute lookups resolve against the value fields first and fall
// back to the key fields.
type Model struct {
	valueSchema *avro.RecordSchema
	keySchema   *avro.RecordSchema
	descriptor  *Descriptor
	byName      map[string]*Field
	name        string
	fields      []*Field
	keyFields   []*Field
	attrOrder   []*Field
	fingerprint [32]byte
}

func (m *Model) index() {
	m.byName = make(map[string]*Field, len(m.fields)+len(m.keyFields))
	m.attrOrder = m.attrOrder[:0]
	for _, f := range m.keyFields {
		if _, ok := m.byName[f.Name]; !ok {
			m.attrOrder = append(m.attrOrder, f)
		}
		m.byName[f.Name] = f
	}
	for _, f := range m.fields {
		if _, ok := m.byName[f.Name]; !ok {
			m.attrOrder = append(m.attrOrder, f)
		}
		// value fields shadow key fields for metadata lookups
		m.byName[f.Name] = f
	}
}

// Name returns the full name of the value record.
func (m *Model) Name() string { return m.name }

// Fingerprint returns the SHA-256 canonical fingerprint of the value schema.
func (m *Model) Fingerprint() [32]byte { return m.fingerprint }

func (m *Model) ValueSchema() *avro.RecordSchema { return m.valueSchema }

// KeySchema returns the key record schema, or nil.
func (m *Model) KeySchema() *avro.RecordSchema { return m.keySchema }

func (m *Model) HasKey() bool { return m.keySchema != nil }

// Descriptor returns the record descriptor of the value schema.
func (m *Model) Descriptor() *Descriptor { return m.descriptor }

// Fields returns the value fields in declaration order.
func (m *Model) Fields() []*Field { return m.fields }

// KeyFields returns the key fields in declaration order.
func (m *Model) KeyFields() []*Field { return m.keyFields }

// Attributes returns every attribute once, key fields first.
func (m *Model) Attributes() []*Field { return m.attrOrder }

// Field returns the metadata of the named attribute.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// New coerces attrs into a new instance. Attributes absent from attrs take
// their schema default, or null when there is none; names the model does not
// declare are rejected.
func (m *Model) New(attrs map[string]any) (*Instance, error) {
	return m.newInstance(attrs, coercer{})
}

func (m *Model) newInstance(attrs map[string]any, c coercer) (*Instance, error) {
	if unknown := m.unknownAttributes(attrs); len(unknown) > 0 {
		return nil, errors.FieldUnknown(errors.PhaseCoerce, nil, unknown[0])
	}

	inst := newInstance(m)
	for _, f := range m.attrOrder {
		host, ok := attrs[f.Name]
		if !ok && f.HasDefault {
			inst.Set(f.Name, cloneValue(f.Default))
			continue
		}
		v, err := c.coerce(f.Type, host, []string{f.Name})
		if err != nil {
			return nil, err
		}
		inst.Set(f.Name, v)
	}
	return inst, nil
}

func (m *Model) unknownAttributes(attrs map[string]any) []string {
	var unknown []string
	for name := range attrs {
		if _, ok := m.byName[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// EncodeValue encodes the value fields of inst.
func (m *Model) EncodeValue(inst *Instance) ([]byte, error) {
	return m.encode(inst, m.fields)
}

// EncodeKey encodes the key fields of inst.
func (m *Model) EncodeKey(inst *Instance) ([]byte, error) {
	if !m.HasKey() {
		return nil, errors.Unsupported(errors.PhaseEncode, "model "+m.name+" has no key schema")
	}
	return m.encode(inst, m.keyFields)
}

func (m *Model) encode(inst *Instance, fields []*Field) ([]byte, error) {
	if err := m.owns(inst); err != nil {
		return nil, err
	}

	w := getWriter()
	defer putWriter(w)

	if err := encodeFields(w, fields, inst, nil); err != nil {
		return nil, err
	}
	out := make([]byte, w.Len())
	copy(out, w.Bytes())
	return out, nil
}

func (m *Model) owns(inst *Instance) error {
	if inst == nil {
		return errors.InvalidData(errors.PhaseEncode, nil, "instance cannot be nil")
	}
	if inst.model != m {
		return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			AvroType(m.name).
			Detail("instance of %s cannot be encoded as %s", inst.model.name, m.name).
			Build()
	}
	return nil
}

// DecodeValue decodes a value payload. When writer is non-nil and differs
// from the model's value schema, the payload is resolved from the writer
// schema. Trailing bytes are an error.
func (m *Model) DecodeValue(data []byte, writer avro.Schema) (*Instance, error) {
	inst := newInstance(m)
	if err := m.decodeInto(inst, m.fields, m.valueSchema, data, writer); err != nil {
		return nil, err
	}
	fillMissing(inst, m.attrOrder)
	return inst, nil
}

// DecodeKey decodes a key payload into an instance carrying only key
// attributes.
func (m *Model) DecodeKey(data []byte, writer avro.Schema) (*Instance, error) {
	if !m.HasKey() {
		return nil, errors.Unsupported(errors.PhaseDecode, "model "+m.name+" has no key schema")
	}
	inst := newInstance(m)
	if err := m.decodeInto(inst, m.keyFields, m.keySchema, data, writer); err != nil {
		return nil, err
	}
	return inst, nil
}

// DecodeMessage decodes a key and a value payload into one instance. Key
// attributes win over value attributes of the same name. A nil key decodes
// the value only.
func (m *Model) DecodeMessage(key, val []byte, keyWriter, valueWriter avro.Schema) (*Instance, error) {
	inst := newInstance(m)
	if err := m.decodeInto(inst, m.fields, m.valueSchema, val, valueWriter); err != nil {
		return nil, err
	}
	if key != nil {
		if !m.HasKey() {
			return nil, errors.Unsupported(errors.PhaseDecode, "model "+m.name+" has no key schema")
		}
		if err := m.decodeInto(inst, m.keyFields, m.keySchema, key, keyWriter); err != nil {
			return nil, err
		}
	}
	fillMissing(inst, m.attrOrder)
	return inst, nil
}

func (m *Model) decodeInto(inst *Instance, fields []*Field, own *avro.RecordSchema, data []byte, writer avro.Schema) error {
	r := binary.NewReader(data)
	if writer == nil || writer.Fingerprint() == own.Fingerprint() {
		if err := decodeFields(r, fields, inst, nil); err != nil {
			return err
		}
	} else {
		wr, ok := deref(writer).(*avro.RecordSchema)
		if !ok {
			return errors.InvalidSchema(nil, "writer schema must be a record, got %s", writer.Type())
		}
		if err := resolveFields(r, fields, wr, inst, nil); err != nil {
			return err
		}
	}

	if r.Len() != 0 {
		return errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Detail("%d trailing bytes after %s", r.Len(), own.FullName()).
			Build()
	}
	return nil
}

// fillMissing gives attributes that no payload carried their default, or null.
func fillMissing(inst *Instance, fields []*Field) {
	for _, f := range fields {
		if _, ok := inst.Get(f.Name); ok {
			continue
		}
		if f.HasDefault {
			inst.Set(f.Name, cloneValue(f.Default))
		} else {
			inst.Set(f.Name, nullFor(f.Type))
		}
	}
}
