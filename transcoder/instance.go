package transcoder

import (
	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/value"
)

// Instance is a model's attribute store. It implements value.Storage, so a
// nested record value is a handle to the nested instance itself.
// An Instance is not safe for concurrent mutation.
type Instance struct {
	model *Model
	attrs *value.Attributes
}

var _ value.Storage = (*Instance)(nil)

func newInstance(m *Model) *Instance {
	return &Instance{model: m, attrs: value.NewAttributes(len(m.attrOrder))}
}

func (i *Instance) Model() *Model { return i.model }

func (i *Instance) Get(name string) (value.Value, bool) { return i.attrs.Get(name) }

func (i *Instance) Set(name string, v value.Value) { i.attrs.Set(name, v) }

func (i *Instance) Range(fn func(name string, v value.Value) bool) { i.attrs.Range(fn) }

func (i *Instance) Len() int { return i.attrs.Len() }

// Value wraps the instance as an intermediate record value.
func (i *Instance) Value() value.Record { return value.Record{Attributes: i} }

// Attribute returns the named attribute converted to its host form.
func (i *Instance) Attribute(name string) (any, error) {
	f, ok := i.model.Field(name)
	if !ok {
		return nil, errors.FieldUnknown(errors.PhaseCoerce, nil, name)
	}
	v, ok := i.attrs.Get(name)
	if !ok {
		return nil, nil
	}
	return ToHost(f.Type, v)
}

// Assign coerces host against the attribute's type and stores the result.
// On error the stored attribute is left unchanged.
func (i *Instance) Assign(name string, host any) error {
	f, ok := i.model.Field(name)
	if !ok {
		return errors.FieldUnknown(errors.PhaseCoerce, nil, name)
	}
	v, err := Coerce(f.Type, host)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			return e.WithPath(name)
		}
		return err
	}
	i.attrs.Set(name, v)
	return nil
}

// ToMap converts every attribute to its host form, turning nested instances
// into maps as well.
func (i *Instance) ToMap() (map[string]any, error) {
	out := make(map[string]any, i.attrs.Len())
	for _, f := range i.model.attrOrder {
		v, ok := i.attrs.Get(f.Name)
		if !ok {
			continue
		}
		host, err := ToHost(f.Type, v)
		if err != nil {
			return nil, err
		}
		if out[f.Name], err = plain(host); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func plain(host any) (any, error) {
	switch h := host.(type) {
	case *Instance:
		return h.ToMap()
	case []any:
		out := make([]any, len(h))
		for j, e := range h {
			p, err := plain(e)
			if err != nil {
				return nil, err
			}
			out[j] = p
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(h))
		for k, e := range h {
			p, err := plain(e)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	}
	return host, nil
}

// Equal reports whether both instances belong to the same model and hold
// structurally equal attributes.
func (i *Instance) Equal(other *Instance) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.model == other.model && value.Equal(i.Value(), other.Value())
}

// Clone returns a deep copy of the instance.
func (i *Instance) Clone() *Instance {
	cp := newInstance(i.model)
	i.attrs.Range(func(name string, v value.Value) bool {
		cp.attrs.Set(name, cloneValue(v))
		return true
	})
	return cp
}

func cloneValue(v value.Value) value.Value {
	switch x := v.(type) {
	case value.Bytes:
		return append(value.Bytes(nil), x...)
	case value.Array:
		out := make(value.Array, len(x))
		for j, e := range x {
			out[j] = cloneValue(e)
		}
		return out
	case value.Map:
		out := make(value.Map, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case value.Union:
		return value.Union{Index: x.Index, Value: cloneValue(x.Value)}
	case value.Record:
		if inst, ok := x.Attributes.(*Instance); ok {
			return value.Record{Attributes: inst.Clone()}
		}
	}
	return v
}

// nullFor is the value an unset attribute holds.
func nullFor(d *Descriptor) value.Value {
	if d.Nullable() {
		return value.Union{Index: 0, Value: value.Null{}}
	}
	return value.Null{}
}
