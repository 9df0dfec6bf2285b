package errors

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCompile  Phase = "compile"  // schema → descriptor build
	PhaseCoerce   Phase = "coerce"   // host value → intermediate value
	PhaseEncode   Phase = "encode"   // intermediate value → bytes
	PhaseDecode   Phase = "decode"   // bytes → intermediate value
	PhaseRegistry Phase = "registry" // nested model / schema registry
	PhaseFraming  Phase = "framing"  // message header handling
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch        Kind = "type_mismatch"
	KindInvalidSchema       Kind = "invalid_schema"
	KindInvalidData         Kind = "invalid_data"
	KindInvalidUTF8         Kind = "invalid_utf8"
	KindOverflow            Kind = "overflow"
	KindTruncated           Kind = "truncated"
	KindInvalidEnum         Kind = "invalid_enum"
	KindInvalidVariant      Kind = "invalid_variant"
	KindFieldMissing        Kind = "field_missing"
	KindFieldUnknown        Kind = "field_unknown"
	KindNotFound            Kind = "not_found"
	KindUnsupported         Kind = "unsupported"
	KindMagicByte           Kind = "magic_byte"
	KindFingerprintMismatch Kind = "fingerprint_mismatch"
	KindCustomType          Kind = "custom_type"
	KindRemote              Kind = "remote"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	AvroType string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.AvroType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.AvroType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", Avro type ")
			b.WriteString(e.AvroType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("Avro type ")
			b.WriteString(e.AvroType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.AvroType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// WithPath returns a copy of e with segments prepended to its path.
// Used by recursive walkers to attach the location on the way out.
func (e *Error) WithPath(segments ...string) *Error {
	cp := *e
	cp.Path = append(append(make([]string, 0, len(segments)+len(e.Path)), segments...), e.Path...)
	return &cp
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// AvroType sets the Avro type name
func (b *Builder) AvroType(t string) *Builder {
	b.err.AvroType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// CannotCoerce creates the coercion failure reported when a host value does
// not fit the declared type.
func CannotCoerce(path []string, value any, avroType string) *Error {
	return &Error{
		Phase:    PhaseCoerce,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   fmt.Sprintf("%T", value),
		AvroType: avroType,
		Detail:   fmt.Sprintf("cannot coerce %s to %s", describe(value), avroType),
		Value:    value,
	}
}

// InvalidSchema creates a malformed schema error
func InvalidSchema(path []string, detail string, args ...any) *Error {
	return New(PhaseCompile, KindInvalidSchema).Path(path...).Detail(detail, args...).Build()
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Truncated creates an error for input that ends before a value is complete
func Truncated(phase Phase, path []string, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Path:   path,
		Detail: fmt.Sprintf("need %d bytes, %d remaining", need, have),
	}
}

// FieldMissing reports a field that source does not carry and that has no
// default to fall back on.
func FieldMissing(phase Phase, path []string, fieldName, source string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("field %q is absent from %s and has no default", fieldName, source),
	}
}

// InvalidBranch creates an out-of-range union branch error
func InvalidBranch(phase Phase, path []string, index int64, count int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidVariant,
		Path:   path,
		Detail: fmt.Sprintf("union branch %d out of range (%d branches)", index, count),
		Value:  index,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		AvroType: targetType,
		Detail:   fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:    value,
	}
}

// FieldUnknown creates an unknown attribute error
func FieldUnknown(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Detail: fmt.Sprintf("attribute '%s' does not exist", fieldName),
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, path []string, value any, enumType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidEnum,
		Path:     path,
		AvroType: enumType,
		Detail:   fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:    value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// FingerprintMismatchError is returned when a named record is declared again
// with a schema whose canonical fingerprint differs from the registered one.
type FingerprintMismatchError struct {
	Name       string
	Registered [32]byte
	Attempted  [32]byte
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("[registry] fingerprint_mismatch: model %q already registered with fingerprint %s, got %s",
		e.Name, short(e.Registered), short(e.Attempted))
}

// Is reports whether target matches this error type
func (e *FingerprintMismatchError) Is(target error) bool {
	if _, ok := target.(*FingerprintMismatchError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Phase == PhaseRegistry && t.Kind == KindFingerprintMismatch
	}
	return false
}

func short(fp [32]byte) string {
	return hex.EncodeToString(fp[:8])
}

// IsSchemaError reports whether err was raised while building descriptors.
func IsSchemaError(err error) bool { return hasPhase(err, PhaseCompile) }

// IsCoercionError reports whether err was raised coercing a host value.
func IsCoercionError(err error) bool { return hasPhase(err, PhaseCoerce) }

// IsEncodeError reports whether err was raised while encoding.
func IsEncodeError(err error) bool { return hasPhase(err, PhaseEncode) }

// IsDecodeError reports whether err was raised while decoding bytes.
func IsDecodeError(err error) bool { return hasPhase(err, PhaseDecode) }

func hasPhase(err error, phase Phase) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Phase == phase
	}
	return false
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", x)
	case []byte:
		if len(x) > 32 {
			return fmt.Sprintf("%x...", x[:32])
		}
		return fmt.Sprintf("%x", x)
	default:
		s := fmt.Sprintf("%v", v)
		if len(s) > 64 {
			s = s[:64] + "..."
		}
		return "'" + s + "'"
	}
}
