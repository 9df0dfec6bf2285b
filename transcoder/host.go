package transcoder

import (
	"fmt"
	"time"

	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/value"
)

// Date is a calendar date without a time zone, the host form of the date
// logical type.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// DateFromDays converts a day count since the Unix epoch.
func DateFromDays(days int64) Date {
	return DateOf(time.Unix(days*86400, 0).UTC())
}

// Days returns the day count since 1970-01-01.
func (d Date) Days() int64 {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ToHost converts an intermediate value to its Go host form:
//
//	null                     nil
//	boolean                  bool
//	int, long                int32, int64
//	float, double            float32, float64
//	string, enum, uuid       string
//	bytes, fixed             []byte
//	date                     Date
//	timestamp-millis/micros  time.Time (UTC)
//	array, map               []any, map[string]any
//	union                    host form of the selected branch
//	record                   *Instance
//	custom                   the wrapped host value
func ToHost(d *Descriptor, v value.Value) (any, error) {
	return toHost(d, v, nil)
}

func toHost(d *Descriptor, v value.Value, path []string) (any, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(value.Null); ok && d.Kind != KindUnion {
		return nil, nil
	}

	switch d.Kind {
	case KindBoolean:
		if b, ok := v.(value.Bool); ok {
			return bool(b), nil
		}
	case KindInt:
		if n, ok := v.(value.Long); ok {
			return int32(n), nil
		}
	case KindLong:
		if n, ok := v.(value.Long); ok {
			return int64(n), nil
		}
	case KindFloat:
		if f, ok := v.(value.Float); ok {
			return float32(f), nil
		}
	case KindDouble:
		if f, ok := v.(value.Float); ok {
			return float64(f), nil
		}
	case KindString, KindEnum, KindUUID:
		if b, ok := v.(value.Bytes); ok {
			return string(b), nil
		}
	case KindBytes, KindFixed:
		if b, ok := v.(value.Bytes); ok {
			return []byte(b), nil
		}
	case KindDate:
		if n, ok := v.(value.Long); ok {
			return DateFromDays(int64(n)), nil
		}
	case KindTimestampMillis:
		if n, ok := v.(value.Long); ok {
			return time.UnixMilli(int64(n)).UTC(), nil
		}
	case KindTimestampMicros:
		if n, ok := v.(value.Long); ok {
			return time.UnixMicro(int64(n)).UTC(), nil
		}
	case KindArray:
		if a, ok := v.(value.Array); ok {
			out := make([]any, len(a))
			for i, e := range a {
				h, err := toHost(d.Elem, e, appendPath(path, fmt.Sprint(i)))
				if err != nil {
					return nil, err
				}
				out[i] = h
			}
			return out, nil
		}
	case KindMap:
		if m, ok := v.(value.Map); ok {
			out := make(map[string]any, len(m))
			for k, e := range m {
				h, err := toHost(d.Elem, e, appendPath(path, k))
				if err != nil {
					return nil, err
				}
				out[k] = h
			}
			return out, nil
		}
	case KindUnion:
		switch u := v.(type) {
		case value.Union:
			if u.Index < 0 || u.Index >= len(d.Variants) {
				return nil, errors.InvalidBranch(errors.PhaseCoerce, path, int64(u.Index), len(d.Variants))
			}
			return toHost(d.Variants[u.Index], u.Value, path)
		case value.Null:
			return nil, nil
		}
	case KindRecord:
		if r, ok := v.(value.Record); ok {
			if inst, ok := r.Attributes.(*Instance); ok {
				return inst, nil
			}
			return r.Attributes, nil
		}
	case KindCustom:
		if c, ok := v.(value.Custom); ok {
			return c.Value, nil
		}
		// a value stored in underlying form
		h, err := toHost(d.Elem, v, path)
		if err != nil {
			return nil, err
		}
		out, err := d.Custom.deserialize(h)
		if err != nil {
			return nil, customError(errors.PhaseCoerce, path, d.Custom, err)
		}
		return out, nil
	}

	return nil, errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
		Path(path...).
		AvroType(d.TypeName()).
		Detail("%s value does not match %s", v.Kind(), d.TypeName()).
		Build()
}
