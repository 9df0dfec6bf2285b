package transcoder

import (
	"math"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/transcoder/internal/binary"
	"github.com/wippyai/avro-model/value"
)

// Encode writes v in the Avro binary encoding of d.
func Encode(d *Descriptor, v value.Value) ([]byte, error) {
	return AppendEncode(nil, d, v)
}

// AppendEncode appends the encoding of v to dst. On error dst is returned
// unchanged.
func AppendEncode(dst []byte, d *Descriptor, v value.Value) ([]byte, error) {
	w := binary.NewWriter(dst)
	if err := encode(w, d, v, nil); err != nil {
		return dst, err
	}
	return w.Bytes(), nil
}

func encode(w *binary.Writer, d *Descriptor, v value.Value, path []string) error {
	switch d.Kind {
	case KindNull:
		if _, ok := v.(value.Null); ok {
			return nil
		}
	case KindBoolean:
		if b, ok := v.(value.Bool); ok {
			w.WriteBool(bool(b))
			return nil
		}
	case KindInt, KindDate:
		if n, ok := v.(value.Long); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return errors.Overflow(errors.PhaseEncode, path, int64(n), d.TypeName())
			}
			w.WriteLong(int64(n))
			return nil
		}
	case KindLong, KindTimestampMillis, KindTimestampMicros:
		if n, ok := v.(value.Long); ok {
			w.WriteLong(int64(n))
			return nil
		}
	case KindFloat:
		if f, ok := v.(value.Float); ok {
			w.WriteFloat(float32(f))
			return nil
		}
	case KindDouble:
		if f, ok := v.(value.Float); ok {
			w.WriteDouble(float64(f))
			return nil
		}
	case KindBytes:
		if b, ok := v.(value.Bytes); ok {
			w.WriteBytes(b)
			return nil
		}
	case KindString, KindUUID:
		if b, ok := v.(value.Bytes); ok {
			if !utf8.Valid(b) {
				return errors.InvalidUTF8(errors.PhaseEncode, path, b)
			}
			w.WriteBytes(b)
			return nil
		}
	case KindFixed:
		if b, ok := v.(value.Bytes); ok {
			if len(b) != d.Size {
				return errors.New(errors.PhaseEncode, errors.KindInvalidData).
					Path(path...).
					AvroType(d.TypeName()).
					Detail("expected %d bytes, got %d", d.Size, len(b)).
					Build()
			}
			w.WriteFixed(b)
			return nil
		}
	case KindEnum:
		if b, ok := v.(value.Bytes); ok {
			i, found := d.SymbolIndex(string(b))
			if !found {
				return errors.InvalidEnum(errors.PhaseEncode, path, string(b), d.Name)
			}
			w.WriteLong(int64(i))
			return nil
		}
	case KindArray:
		if a, ok := v.(value.Array); ok {
			return encodeArray(w, d, a, path)
		}
	case KindMap:
		if m, ok := v.(value.Map); ok {
			return encodeMap(w, d, m, path)
		}
	case KindUnion:
		return encodeUnion(w, d, v, path)
	case KindRecord:
		if r, ok := v.(value.Record); ok {
			if r.Attributes == nil {
				break
			}
			return encodeFields(w, d.Model.fields, r.Attributes, path)
		}
	case KindCustom:
		return encodeCustom(w, d, v, path)
	}

	return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
		Path(path...).
		AvroType(d.TypeName()).
		Detail("cannot encode %s as %s", kindOf(v), d.TypeName()).
		Build()
}

func kindOf(v value.Value) string {
	if v == nil {
		return "missing value"
	}
	return v.Kind().String()
}

func encodeArray(w *binary.Writer, d *Descriptor, a value.Array, path []string) error {
	if len(a) > 0 {
		w.WriteLong(int64(len(a)))
		for i, item := range a {
			if err := encode(w, d.Elem, item, appendPath(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	}
	w.WriteLong(0)
	return nil
}

// encodeMap writes keys in sorted order so equal maps encode identically.
func encodeMap(w *binary.Writer, d *Descriptor, m value.Map, path []string) error {
	if len(m) > 0 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w.WriteLong(int64(len(m)))
		for _, k := range keys {
			if !utf8.ValidString(k) {
				return errors.InvalidUTF8(errors.PhaseEncode, path, []byte(k))
			}
			w.WriteBytes([]byte(k))
			if err := encode(w, d.Elem, m[k], appendPath(path, k)); err != nil {
				return err
			}
		}
	}
	w.WriteLong(0)
	return nil
}

// encodeUnion writes a tagged value on its own branch. An untagged value is
// written on the first branch that accepts it.
func encodeUnion(w *binary.Writer, d *Descriptor, v value.Value, path []string) error {
	if u, ok := v.(value.Union); ok {
		if u.Index < 0 || u.Index >= len(d.Variants) {
			return errors.InvalidBranch(errors.PhaseEncode, path, int64(u.Index), len(d.Variants))
		}
		w.WriteLong(int64(u.Index))
		return encode(w, d.Variants[u.Index], u.Value, path)
	}

	mark := w.Len()
	for i, variant := range d.Variants {
		w.WriteLong(int64(i))
		if err := encode(w, variant, v, path); err == nil {
			return nil
		}
		w.Truncate(mark)
	}
	return errors.New(errors.PhaseEncode, errors.KindInvalidVariant).
		Path(path...).
		AvroType(d.TypeName()).
		Detail("no branch of %s accepts %s", d.TypeName(), kindOf(v)).
		Build()
}

// encodeFields writes fields in declaration order. An attribute the storage
// does not hold is written as null.
func encodeFields(w *binary.Writer, fields []*Field, s value.Storage, path []string) error {
	for _, f := range fields {
		v, ok := s.Get(f.Name)
		if !ok {
			v = value.Null{}
		}
		if err := encode(w, f.Type, v, appendPath(path, f.Name)); err != nil {
			return err
		}
	}
	return nil
}

// encodeCustom recovers the underlying host value through the custom type,
// coerces it against the underlying descriptor and writes that. Custom
// types add no bytes of their own.
func encodeCustom(w *binary.Writer, d *Descriptor, v value.Value, path []string) error {
	c, ok := v.(value.Custom)
	if !ok {
		return encode(w, d.Elem, v, path)
	}
	host, err := d.Custom.serialize(c.Value)
	if err != nil {
		return customError(errors.PhaseEncode, path, d.Custom, err)
	}
	underlying, err := coercer{}.coerce(d.Elem, host, path)
	if err != nil {
		return errors.New(errors.PhaseEncode, errors.KindCustomType).
			Path(path...).
			AvroType(d.Name).
			Cause(err).
			Detail("custom type %s produced a value its underlying %s rejects", d.Name, d.Elem.TypeName()).
			Build()
	}
	return encode(w, d.Elem, underlying, path)
}
