// Package errors provides structured error types for the avro-model library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/Avro type names, and cause chain.
//
// The phases line up with the codec's failure classes:
//
//	PhaseCompile   SchemaError: malformed schema, null-not-first union, bad default
//	PhaseCoerce    CoercionError: host value does not fit the declared type
//	PhaseEncode    intermediate value cannot be written against the descriptor
//	PhaseDecode    DecodeError: truncated bytes, bad UTF-8, out-of-range enum/union index
//	PhaseRegistry  nested model and schema registry failures
//
// A named record re-declared with a different canonical schema yields a
// *FingerprintMismatchError, which is a process-level misconfiguration.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCoerce, errors.KindTypeMismatch).
//		Path("user", "age").
//		GoType("string").
//		AvroType("long").
//		Detail("cannot convert string to integer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.CannotCoerce(path, value, "fixed(4)")
//	err := errors.Truncated(errors.PhaseDecode, path, 8, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
