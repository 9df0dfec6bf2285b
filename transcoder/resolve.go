package transcoder

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hamba/avro/v2"

	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/transcoder/internal/binary"
	"github.com/wippyai/avro-model/transcoder/internal/types"
	"github.com/wippyai/avro-model/value"
)

// DecodeWithWriter reads data written with the writer schema and resolves it
// into a value of the reader descriptor, following Avro schema resolution:
//
//   - writer fields the reader lacks are skipped
//   - reader fields the writer lacks take their default; a reader field
//     with no default is a schema error
//   - fields match by name or reader alias
//   - int, long and float promote to wider numeric types; string and bytes
//     are interchangeable
//   - an enum symbol the reader lacks maps to the reader's enum default
//   - a writer union branch is resolved against the reader; a reader union
//     picks the branch matching the writer schema
//
// Resolution recurses through records, arrays, maps and unions.
func DecodeWithWriter(reader *Descriptor, writer avro.Schema, data []byte) (value.Value, []byte, error) {
	if writer == nil {
		return Decode(reader, data)
	}
	r := binary.NewReader(data)
	v, err := resolve(r, reader, writer, nil)
	if err != nil {
		return nil, data, err
	}
	return v, r.Remaining(), nil
}

func resolve(r *binary.Reader, d *Descriptor, ws avro.Schema, path []string) (value.Value, error) {
	ws = deref(ws)
	if d.Fingerprint == ws.Fingerprint() {
		return decode(r, d, path)
	}

	if d.Kind == KindCustom {
		v, err := resolve(r, d.Elem, ws, path)
		if err != nil {
			return nil, err
		}
		return wrapCustom(d, v, path)
	}

	if wu, ok := ws.(*avro.UnionSchema); ok {
		branches := wu.Types()
		i, err := r.ReadLong()
		if err != nil {
			return nil, at(err, path)
		}
		if i < 0 || i >= int64(len(branches)) {
			return nil, errors.InvalidBranch(errors.PhaseDecode, path, i, len(branches))
		}
		return resolve(r, d, branches[i], path)
	}

	if d.Kind == KindUnion {
		j, err := selectBranch(d, ws, path)
		if err != nil {
			return nil, err
		}
		v, err := resolve(r, d.Variants[j], ws, path)
		if err != nil {
			return nil, err
		}
		return value.Union{Index: j, Value: v}, nil
	}

	switch d.Kind {
	case KindRecord:
		wr, ok := ws.(*avro.RecordSchema)
		if !ok || !namesMatch(d, wr) {
			break
		}
		inst := newInstance(d.Model)
		if err := resolveFields(r, d.Model.fields, wr, inst, path); err != nil {
			return nil, err
		}
		return value.Record{Attributes: inst}, nil
	case KindEnum:
		we, ok := ws.(*avro.EnumSchema)
		if !ok || !namesMatch(d, we) {
			break
		}
		return resolveEnum(r, d, we, path)
	case KindFixed:
		wf, ok := ws.(*avro.FixedSchema)
		if !ok || wf.Size() != d.Size || !namesMatch(d, wf) {
			break
		}
		return decode(r, d, path)
	case KindArray:
		wa, ok := ws.(*avro.ArraySchema)
		if !ok {
			break
		}
		out := value.Array{}
		err := readBlocks(r, path, func() error {
			v, err := resolve(r, d.Elem, wa.Items(), appendPath(path, strconv.Itoa(len(out))))
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
		wm, ok := ws.(*avro.MapSchema)
		if !ok {
			break
		}
		out := value.Map{}
		err := readBlocks(r, path, func() error {
			k, err := r.ReadString()
			if err != nil {
				return at(err, path)
			}
			v, err := resolve(r, d.Elem, wm.Values(), appendPath(path, string(k)))
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
	default:
		wk, ok := writerKind(ws)
		if !ok || !types.Promotable(wk, d.Kind) {
			break
		}
		return readPromoted(r, wk, d, path)
	}

	return nil, incompatible(d, ws, path)
}

// resolveFields reads a writer record into s, keyed by the reader fields.
func resolveFields(r *binary.Reader, fields []*Field, wr *avro.RecordSchema, s value.Storage, path []string) error {
	matched := make(map[string]bool, len(fields))
	for _, wf := range wr.Fields() {
		f := matchField(fields, wf)
		if f == nil {
			if err := skip(r, wf.Type(), appendPath(path, wf.Name())); err != nil {
				return err
			}
			continue
		}
		v, err := resolve(r, f.Type, wf.Type(), appendPath(path, f.Name))
		if err != nil {
			return err
		}
		s.Set(f.Name, v)
		matched[f.Name] = true
	}

	for _, f := range fields {
		if matched[f.Name] {
			continue
		}
		if !f.HasDefault {
			return errors.FieldMissing(errors.PhaseCompile, appendPath(path, f.Name), f.Name, "writer "+wr.FullName())
		}
		s.Set(f.Name, cloneValue(f.Default))
	}
	return nil
}

func matchField(fields []*Field, wf *avro.Field) *Field {
	for _, f := range fields {
		if f.matches(wf.Name()) {
			return f
		}
	}
	for _, f := range fields {
		for _, a := range wf.Aliases() {
			if a == f.Name {
				return f
			}
		}
	}
	return nil
}

func resolveEnum(r *binary.Reader, d *Descriptor, we *avro.EnumSchema, path []string) (value.Value, error) {
	symbols := we.Symbols()
	i, err := r.ReadLong()
	if err != nil {
		return nil, at(err, path)
	}
	if i < 0 || i >= int64(len(symbols)) {
		return nil, errors.InvalidEnum(errors.PhaseDecode, path, i, we.FullName())
	}
	symbol := symbols[i]
	if _, ok := d.SymbolIndex(symbol); ok {
		return value.String(symbol), nil
	}
	if d.EnumDefault != "" {
		return value.String(d.EnumDefault), nil
	}
	return nil, errors.InvalidEnum(errors.PhaseDecode, path, symbol, d.Name)
}

// readPromoted reads a writer primitive and widens it to the reader kind.
func readPromoted(r *binary.Reader, wk TypeKind, d *Descriptor, path []string) (value.Value, error) {
	rk := d.Kind.Wire()
	switch wk.Wire() {
	case KindNull:
		return value.Null{}, nil
	case KindBoolean:
		b, err := r.ReadBool()
		if err != nil {
			return nil, at(err, path)
		}
		return value.Bool(b), nil
	case KindInt, KindLong:
		var n int64
		var err error
		if wk.Wire() == KindInt {
			var i int32
			i, err = r.ReadInt()
			n = int64(i)
		} else {
			n, err = r.ReadLong()
		}
		if err != nil {
			return nil, at(err, path)
		}
		switch rk {
		case KindFloat:
			return value.Float(float32(n)), nil
		case KindDouble:
			return value.Float(float64(n)), nil
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
	case KindBytes, KindString:
		b, err := r.ReadBytes()
		if err != nil {
			return nil, at(err, path)
		}
		if rk == KindString && !utf8.Valid(b) {
			return nil, errors.InvalidUTF8(errors.PhaseDecode, path, b)
		}
		return value.Bytes(b), nil
	}
	return nil, errors.Unsupported(errors.PhaseDecode, "writer kind "+wk.String())
}

// selectBranch picks the reader union branch for a writer schema: an exact
// fingerprint match first, then the same kind and name, then the first
// branch the writer type promotes to.
func selectBranch(d *Descriptor, ws avro.Schema, path []string) (int, error) {
	if j, ok := d.BranchIndex[ws.Fingerprint()]; ok {
		return j, nil
	}
	for j, v := range d.Variants {
		if sameShape(underlying(v), ws) {
			return j, nil
		}
	}
	if wk, ok := writerKind(ws); ok {
		for j, v := range d.Variants {
			if u := underlying(v); u.Kind.IsPrimitive() && !isNamed(u) && types.Promotable(wk, u.Kind) {
				return j, nil
			}
		}
	}
	return 0, incompatible(d, ws, path)
}

func underlying(d *Descriptor) *Descriptor {
	if d.Kind == KindCustom {
		return d.Elem
	}
	return d
}

func isNamed(d *Descriptor) bool {
	return d.Kind == KindEnum || d.Kind == KindFixed || d.Kind == KindRecord
}

func sameShape(d *Descriptor, ws avro.Schema) bool {
	switch s := ws.(type) {
	case *avro.RecordSchema:
		return d.Kind == KindRecord && namesMatch(d, s)
	case *avro.EnumSchema:
		return d.Kind == KindEnum && namesMatch(d, s)
	case *avro.FixedSchema:
		return d.Kind == KindFixed && d.Size == s.Size() && namesMatch(d, s)
	case *avro.ArraySchema:
		return d.Kind == KindArray
	case *avro.MapSchema:
		return d.Kind == KindMap
	case *avro.NullSchema:
		return d.Kind == KindNull
	case *avro.PrimitiveSchema:
		wk, ok := primitiveKind(s)
		return ok && !isNamed(d) && d.Kind.IsPrimitive() && d.Kind.Wire() == wk.Wire()
	}
	return false
}

// writerKind is the kind of a null or primitive writer schema.
func writerKind(ws avro.Schema) (TypeKind, bool) {
	switch s := ws.(type) {
	case *avro.NullSchema:
		return KindNull, true
	case *avro.PrimitiveSchema:
		return primitiveKind(s)
	}
	return 0, false
}

// namesMatch compares named types by full name, unqualified name or reader
// alias.
func namesMatch(d *Descriptor, ws avro.NamedSchema) bool {
	if d.Name == ws.FullName() || shortName(d.Name) == shortName(ws.FullName()) {
		return true
	}
	for _, a := range d.Aliases {
		if a == ws.FullName() || shortName(a) == shortName(ws.FullName()) {
			return true
		}
	}
	return false
}

func shortName(full string) string {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[i+1:]
	}
	return full
}

func incompatible(d *Descriptor, ws avro.Schema, path []string) error {
	return errors.New(errors.PhaseCompile, errors.KindInvalidSchema).
		Path(path...).
		AvroType(d.TypeName()).
		Detail("writer type %s cannot be read as %s", ws.Type(), d.TypeName()).
		Build()
}

// skip advances past one value written with schema ws.
func skip(r *binary.Reader, ws avro.Schema, path []string) error {
	var err error
	switch s := deref(ws).(type) {
	case *avro.NullSchema:
	case *avro.PrimitiveSchema:
		switch s.Type() {
		case avro.Null:
		case avro.Boolean:
			err = r.Skip(1)
		case avro.Int, avro.Long:
			err = r.SkipLong()
		case avro.Float:
			err = r.Skip(4)
		case avro.Double:
			err = r.Skip(8)
		case avro.Bytes, avro.String:
			err = r.SkipBytes()
		}
	case *avro.FixedSchema:
		err = r.Skip(s.Size())
	case *avro.EnumSchema:
		err = r.SkipLong()
	case *avro.ArraySchema:
		return skipBlocks(r, path, func() error { return skip(r, s.Items(), path) })
	case *avro.MapSchema:
		return skipBlocks(r, path, func() error {
			if err := r.SkipBytes(); err != nil {
				return at(err, path)
			}
			return skip(r, s.Values(), path)
		})
	case *avro.UnionSchema:
		branches := s.Types()
		i, err := r.ReadLong()
		if err != nil {
			return at(err, path)
		}
		if i < 0 || i >= int64(len(branches)) {
			return errors.InvalidBranch(errors.PhaseDecode, path, i, len(branches))
		}
		return skip(r, branches[i], path)
	case *avro.RecordSchema:
		for _, f := range s.Fields() {
			if err := skip(r, f.Type(), appendPath(path, f.Name())); err != nil {
				return err
			}
		}
	}
	return at(err, path)
}

// skipBlocks skips an array or map. Blocks that carry their byte size are
// skipped without decoding their items.
func skipBlocks(r *binary.Reader, path []string, item func() error) error {
	var total int64
	for {
		count, size, err := r.ReadBlockCount()
		if err != nil {
			return at(err, path)
		}
		if count == 0 {
			return nil
		}
		if size >= 0 {
			if size > int64(r.Len()) {
				return errors.Truncated(errors.PhaseDecode, path, int(min(size, 1<<31-1)), r.Len())
			}
			if err := r.Skip(int(size)); err != nil {
				return at(err, path)
			}
			continue
		}
		if total, err = blockItems(r, path, total, count, item); err != nil {
			return err
		}
	}
}
