// Package transcoder provides Avro binary encoding and decoding for
// schema-described message models.
//
// This package handles bidirectional conversion between loosely typed Go
// host values, the intermediate values of package value, and the Avro
// binary encoding:
//
//	┌───────────────────────────────────────────────────────────────┐
//	│ Go host value ←→ [Coerce/ToHost] ←→ value.Value ←→ Avro bytes │
//	└───────────────────────────────────────────────────────────────┘
//
// # Wire Encoding
//
//	Type            Encoding
//	──────────────────────────────────────────────────────────
//	null            nothing
//	boolean         one byte, 0 or 1
//	int/long        zigzag varint, at most 10 bytes
//	float/double    4/8 bytes little-endian IEEE 754
//	bytes/string    long length, then raw bytes (UTF-8 for string)
//	fixed(N)        N raw bytes
//	enum            long symbol index
//	array/map       blocks of (count, items...), ending with count 0
//	union           long branch index, then the branch value
//	record          fields in declaration order
//	custom          the underlying type's encoding
//
// Logical types date, timestamp-millis, timestamp-micros and uuid encode as
// their underlying int, long and string.
//
// # Key Types
//
//	Compiler     - Builds descriptor trees from parsed schemas
//	Descriptor   - Compiled schema node consumed by encode and decode
//	Registry     - Nested record models keyed by full name
//	Model        - Value record plus optional key record
//	Instance     - Attribute storage bound to a model
//	CustomTypes  - Named schemas mapped to host conversion hooks
//
// # Encoding Flow
//
//  1. Compiler.NewModel(valueSchema, keySchema) → *Model
//  2. Model.New(attrs) → *Instance (coercion and defaults)
//  3. Model.EncodeValue(inst) / Model.EncodeKey(inst) → []byte
//
// # Decoding Flow
//
//  1. Model.DecodeValue(data, writerSchema) → *Instance
//  2. Instance.Attribute(name) / Instance.ToMap() → host values
//
// A nil writer schema, or one with the reader's fingerprint, decodes
// directly. Any other writer schema goes through Avro schema resolution; see
// DecodeWithWriter.
//
// # Nested Models
//
// Every record reachable from a compiled schema is registered once by full
// name. Compiling a different schema under a registered name fails with
// *errors.FingerprintMismatchError; the existing model is never replaced.
//
// # Thread Safety
//
// Compiler, Registry and CustomTypes are safe for concurrent use. Models and
// descriptors are immutable once built. An Instance is not synchronized.
package transcoder
