package transcoder

import (
	"strconv"

	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/transcoder/internal/abi"
	"github.com/wippyai/avro-model/transcoder/internal/binary"
	"github.com/wippyai/avro-model/value"
)

// Decode reads one value of d from data and returns it with the unconsumed
// remainder. Malformed or truncated input is a decode error, never a panic.
func Decode(d *Descriptor, data []byte) (value.Value, []byte, error) {
	r := binary.NewReader(data)
	v, err := decode(r, d, nil)
	if err != nil {
		return nil, data, err
	}
	return v, r.Remaining(), nil
}

func decode(r *binary.Reader, d *Descriptor, path []string) (value.Value, error) {
	switch d.Kind {
	case KindNull:
		return value.Null{}, nil
	case KindBoolean:
		b, err := r.ReadBool()
		if err != nil {
			return nil, at(err, path)
		}
		return value.Bool(b), nil
	case KindInt, KindDate:
		n, err := r.ReadInt()
		if err != nil {
			return nil, at(err, path)
		}
		return value.Long(n), nil
	case KindLong, KindTimestampMillis, KindTimestampMicros:
		n, err := r.ReadLong()
		if err != nil {
			return nil, at(err, path)
		}
		return value.Long(n), nil
	case KindFloat:
		f, err := r.ReadFloat()
		if err != nil {
			return nil, at(err, path)
		}
		return value.Float(f), nil
	case KindDouble:
		f, err := r.ReadDouble()
		if err != nil {
			return nil, at(err, path)
		}
		return value.Float(f), nil
	case KindBytes:
		b, err := r.ReadBytes()
		if err != nil {
			return nil, at(err, path)
		}
		return value.Bytes(b), nil
	case KindString, KindUUID:
		b, err := r.ReadString()
		if err != nil {
			return nil, at(err, path)
		}
		return value.Bytes(b), nil
	case KindFixed:
		b, err := r.ReadFixed(d.Size)
		if err != nil {
			return nil, at(err, path)
		}
		return value.Bytes(b), nil
	case KindEnum:
		i, err := r.ReadLong()
		if err != nil {
			return nil, at(err, path)
		}
		if i < 0 || i >= int64(len(d.Symbols)) {
			return nil, errors.InvalidEnum(errors.PhaseDecode, path, i, d.Name)
		}
		return value.String(d.Symbols[i]), nil
	case KindArray:
		out := value.Array{}
		err := readBlocks(r, path, func() error {
			v, err := decode(r, d.Elem, appendPath(path, strconv.Itoa(len(out))))
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case KindMap:
		out := value.Map{}
		err := readBlocks(r, path, func() error {
			k, err := r.ReadString()
			if err != nil {
				return at(err, path)
			}
			v, err := decode(r, d.Elem, appendPath(path, string(k)))
			if err != nil {
				return err
			}
			out[string(k)] = v
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case KindUnion:
		i, err := r.ReadLong()
		if err != nil {
			return nil, at(err, path)
		}
		if i < 0 || i >= int64(len(d.Variants)) {
			return nil, errors.InvalidBranch(errors.PhaseDecode, path, i, len(d.Variants))
		}
		v, err := decode(r, d.Variants[i], path)
		if err != nil {
			return nil, err
		}
		return value.Union{Index: int(i), Value: v}, nil
	case KindRecord:
		inst := newInstance(d.Model)
		if err := decodeFields(r, d.Model.fields, inst, path); err != nil {
			return nil, err
		}
		return value.Record{Attributes: inst}, nil
	case KindCustom:
		v, err := decode(r, d.Elem, path)
		if err != nil {
			return nil, err
		}
		return wrapCustom(d, v, path)
	}
	return nil, errors.Unsupported(errors.PhaseDecode, "descriptor kind "+d.Kind.String())
}

func decodeFields(r *binary.Reader, fields []*Field, s value.Storage, path []string) error {
	for _, f := range fields {
		v, err := decode(r, f.Type, appendPath(path, f.Name))
		if err != nil {
			return err
		}
		s.Set(f.Name, v)
	}
	return nil
}

// readBlocks calls item once per element of an array or map block sequence.
func readBlocks(r *binary.Reader, path []string, item func() error) error {
	var total int64
	for {
		count, _, err := r.ReadBlockCount()
		if err != nil {
			return at(err, path)
		}
		if count == 0 {
			return nil
		}
		if total, err = blockItems(r, path, total, count, item); err != nil {
			return err
		}
	}
}

// blockItems reads one block of count items. The running item total is
// capped at abi.MaxBlockItems. Items that consume no input are charged to
// the reader so a huge count over a short buffer fails instead of spinning.
func blockItems(r *binary.Reader, path []string, total, count int64, item func() error) (int64, error) {
	total, ok := abi.SafeAddInt(total, count, abi.MaxBlockItems)
	if !ok {
		return 0, errors.New(errors.PhaseDecode, errors.KindOverflow).
			Path(path...).
			Detail("block of %d items exceeds the limit of %d", count, abi.MaxBlockItems).
			Build()
	}
	for ; count > 0; count-- {
		pos := r.Position()
		if err := item(); err != nil {
			return 0, err
		}
		if r.Position() == pos && !r.CountEmpty() {
			return 0, errors.New(errors.PhaseDecode, errors.KindOverflow).
				Path(path...).
				Detail("more than %d items without content", binary.MaxEmptyItems).
				Build()
		}
	}
	return total, nil
}

// wrapCustom turns a decoded underlying value into the custom host value.
// Null bypasses the custom type.
func wrapCustom(d *Descriptor, underlying value.Value, path []string) (value.Value, error) {
	if _, ok := underlying.(value.Null); ok {
		return underlying, nil
	}
	host, err := toHost(d.Elem, underlying, path)
	if err != nil {
		return nil, err
	}
	v, err := d.Custom.deserialize(host)
	if err != nil {
		return nil, customError(errors.PhaseDecode, path, d.Custom, err)
	}
	return value.Custom{Value: v}, nil
}

// at attaches path to an error raised by the binary reader.
func at(err error, path []string) error {
	if e, ok := err.(*errors.Error); ok && len(path) > 0 {
		return e.WithPath(path...)
	}
	return err
}
