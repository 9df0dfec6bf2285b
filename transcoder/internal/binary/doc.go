// Package binary implements the Avro binary primitives: zigzag varints,
// length-prefixed byte strings, little-endian floats and block counts.
//
// This package is internal to the transcoder.
package binary
