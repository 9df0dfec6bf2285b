package transcoder

import (
	"encoding"
	"math"
	"reflect"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/transcoder/internal/abi"
	"github.com/wippyai/avro-model/value"
)

// Coerce converts a loosely typed host value into an intermediate value
// validated against d.
//
// A nil host value becomes Null for every descriptor; for a union whose
// first branch is null it becomes Union(0, Null). Unions otherwise take the
// first branch, in declared order, that accepts the value.
func Coerce(d *Descriptor, host any) (value.Value, error) {
	return coercer{}.coerce(d, host, nil)
}

// coerceDefault resolves a schema default literal. Literals follow the JSON
// encoding of defaults: whole floats are accepted for integral types, strings
// map code points to bytes for bytes and fixed, and a union default always
// belongs to the first branch.
func coerceDefault(d *Descriptor, literal any, path []string) (value.Value, error) {
	return coercer{literal: true}.coerce(d, literal, path)
}

type coercer struct {
	literal bool
}

func (c coercer) coerce(d *Descriptor, host any, path []string) (value.Value, error) {
	if abi.IsNil(host) {
		return nullFor(d), nil
	}
	if rv := reflect.ValueOf(host); rv.Kind() == reflect.Ptr {
		if _, ok := host.(*Instance); !ok {
			return c.coerce(d, rv.Elem().Interface(), path)
		}
	}

	switch d.Kind {
	case KindNull:
		return nil, errors.CannotCoerce(path, host, "null")
	case KindBoolean:
		if b, ok := abi.CoerceToBool(host); ok {
			return value.Bool(b), nil
		}
	case KindInt:
		return c.coerceInt(d, host, path)
	case KindLong:
		if n, ok := c.integral(host); ok {
			return value.Long(n), nil
		}
	case KindFloat:
		if f, ok := abi.CoerceToFloat64(host); ok {
			return value.Float(float32(f)), nil
		}
	case KindDouble:
		if f, ok := abi.CoerceToFloat64(host); ok {
			return value.Float(f), nil
		}
	case KindString:
		if b, ok := abi.CoerceToBytes(host); ok {
			if !utf8.Valid(b) {
				return nil, errors.InvalidUTF8(errors.PhaseCoerce, path, b)
			}
			return value.Bytes(append([]byte(nil), b...)), nil
		}
	case KindBytes:
		if b, ok := c.bytes(host); ok {
			return value.Bytes(b), nil
		}
	case KindUUID:
		return coerceUUID(host, path)
	case KindFixed:
		if b, ok := c.bytes(host); ok && len(b) == d.Size {
			return value.Bytes(b), nil
		}
		return nil, errors.CannotCoerce(path, host, d.TypeName())
	case KindEnum:
		if b, ok := abi.CoerceToBytes(host); ok {
			if _, ok := d.SymbolIndex(string(b)); ok {
				return value.Bytes(append([]byte(nil), b...)), nil
			}
			return nil, errors.InvalidEnum(errors.PhaseCoerce, path, string(b), d.Name)
		}
	case KindDate:
		return c.coerceDate(host, path)
	case KindTimestampMillis, KindTimestampMicros:
		return c.coerceTimestamp(d, host, path)
	case KindArray:
		return c.coerceArray(d, host, path)
	case KindMap:
		return c.coerceMap(d, host, path)
	case KindUnion:
		return c.coerceUnion(d, host, path)
	case KindRecord:
		return c.coerceRecord(d, host, path)
	case KindCustom:
		return c.coerceCustom(d, host, path)
	}
	return nil, errors.CannotCoerce(path, host, d.TypeName())
}

func (c coercer) integral(host any) (int64, bool) {
	if n, ok := abi.CoerceToInt64(host); ok {
		return n, true
	}
	if c.literal {
		if f, ok := host.(float64); ok && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), true
		}
	}
	return 0, false
}

func (c coercer) coerceInt(d *Descriptor, host any, path []string) (value.Value, error) {
	n, ok := c.integral(host)
	if !ok {
		return nil, errors.CannotCoerce(path, host, d.TypeName())
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, errors.Overflow(errors.PhaseCoerce, path, n, d.TypeName())
	}
	return value.Long(n), nil
}

// bytes copies byte-like input. A literal string maps each code point below
// 256 to one byte.
func (c coercer) bytes(host any) ([]byte, bool) {
	if s, ok := host.(string); ok && c.literal {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			if r > 0xff {
				return nil, false
			}
			out = append(out, byte(r))
		}
		return out, true
	}
	b, ok := abi.CoerceToBytes(host)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}

func coerceUUID(host any, path []string) (value.Value, error) {
	switch h := host.(type) {
	case uuid.UUID:
		return value.String(h.String()), nil
	case string:
		if u, err := uuid.Parse(h); err == nil {
			return value.String(u.String()), nil
		}
	case []byte:
		if u, err := uuid.ParseBytes(h); err == nil {
			return value.String(u.String()), nil
		}
	}
	return nil, errors.CannotCoerce(path, host, "uuid")
}

func (c coercer) coerceDate(host any, path []string) (value.Value, error) {
	var days int64
	switch h := host.(type) {
	case time.Time:
		days = DateOf(h).Days()
	case Date:
		days = h.Days()
	default:
		n, ok := c.integral(host)
		if !ok {
			return nil, errors.CannotCoerce(path, host, "date")
		}
		days = n
	}
	if days < math.MinInt32 || days > math.MaxInt32 {
		return nil, errors.Overflow(errors.PhaseCoerce, path, days, "date")
	}
	return value.Long(days), nil
}

func (c coercer) coerceTimestamp(d *Descriptor, host any, path []string) (value.Value, error) {
	switch h := host.(type) {
	case time.Time:
		if d.Kind == KindTimestampMillis {
			return value.Long(h.UnixMilli()), nil
		}
		return value.Long(h.UnixMicro()), nil
	case Date:
		return nil, errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
			Path(path...).
			GoType("transcoder.Date").
			AvroType(d.TypeName()).
			Value(host).
			Detail("a date has no time of day; use time.Time for %s", d.TypeName()).
			Build()
	}
	if n, ok := c.integral(host); ok {
		return value.Long(n), nil
	}
	return nil, errors.CannotCoerce(path, host, d.TypeName())
}

func (c coercer) coerceArray(d *Descriptor, host any, path []string) (value.Value, error) {
	if items, ok := host.([]any); ok {
		out := make(value.Array, len(items))
		for i, item := range items {
			v, err := c.coerce(d.Elem, item, appendPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	rv := reflect.ValueOf(host)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.CannotCoerce(path, host, d.TypeName())
	}
	out := make(value.Array, rv.Len())
	for i := range out {
		v, err := c.coerce(d.Elem, rv.Index(i).Interface(), appendPath(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c coercer) coerceMap(d *Descriptor, host any, path []string) (value.Value, error) {
	if entries, ok := host.(map[string]any); ok {
		out := make(value.Map, len(entries))
		for k, e := range entries {
			v, err := c.coerce(d.Elem, e, appendPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}

	rv := reflect.ValueOf(host)
	if rv.Kind() != reflect.Map {
		return nil, errors.CannotCoerce(path, host, d.TypeName())
	}
	out := make(value.Map, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, ok := mapKey(iter.Key())
		if !ok {
			return nil, errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
				Path(path...).
				GoType(iter.Key().Type().String()).
				AvroType(d.TypeName()).
				Detail("map key of type %s cannot be converted to a string", iter.Key().Type()).
				Build()
		}
		v, err := c.coerce(d.Elem, iter.Value().Interface(), appendPath(path, k))
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func mapKey(k reflect.Value) (string, bool) {
	if k.Kind() == reflect.String {
		return k.String(), true
	}
	if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
		text, err := tm.MarshalText()
		if err == nil {
			return string(text), true
		}
	}
	return "", false
}

func (c coercer) coerceUnion(d *Descriptor, host any, path []string) (value.Value, error) {
	if c.literal {
		v, err := c.coerce(d.Variants[0], host, path)
		if err != nil {
			return nil, err
		}
		return value.Union{Index: 0, Value: v}, nil
	}

	for i, variant := range d.Variants {
		if v, err := c.coerce(variant, host, path); err == nil {
			return value.Union{Index: i, Value: v}, nil
		}
	}
	return nil, errors.CannotCoerce(path, host, d.TypeName())
}

func (c coercer) coerceRecord(d *Descriptor, host any, path []string) (value.Value, error) {
	m := d.Model
	var attrs map[string]any

	switch h := host.(type) {
	case *Instance:
		if h.model != m {
			return nil, errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
				Path(path...).
				GoType("*transcoder.Instance").
				AvroType(m.name).
				Detail("instance of %s is not a %s", h.model.name, m.name).
				Build()
		}
		return value.Record{Attributes: h}, nil
	case map[string]any:
		attrs = h
	default:
		var ok bool
		if attrs, ok = hostAttributes(m, host); !ok {
			return nil, errors.CannotCoerce(path, host, m.name)
		}
	}

	inst, err := m.newInstance(attrs, c)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			return nil, e.WithPath(path...)
		}
		return nil, err
	}
	return value.Record{Attributes: inst}, nil
}

// hostAttributes reads a string-keyed map or a struct into an attribute map.
// Struct fields are matched to attributes by findGoField.
func hostAttributes(m *Model, host any) (map[string]any, bool) {
	rv := reflect.ValueOf(host)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		attrs := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			attrs[iter.Key().String()] = iter.Value().Interface()
		}
		return attrs, true
	case reflect.Struct:
		attrs := make(map[string]any, len(m.attrOrder))
		for _, f := range m.attrOrder {
			sf, found := findGoField(rv.Type(), f.Name)
			if !found {
				continue
			}
			attrs[f.Name] = rv.FieldByIndex(sf.Index).Interface()
		}
		return attrs, true
	}
	return nil, false
}

func (c coercer) coerceCustom(d *Descriptor, host any, path []string) (value.Value, error) {
	if c.literal {
		underlying, err := c.coerce(d.Elem, host, path)
		if err != nil {
			return nil, err
		}
		h, err := toHost(d.Elem, underlying, path)
		if err != nil {
			return nil, err
		}
		host = h
	}

	v, err := d.Custom.deserialize(host)
	if err != nil {
		return nil, customError(errors.PhaseCoerce, path, d.Custom, err)
	}
	return value.Custom{Value: v}, nil
}
