// Package abi provides internal utilities for host value coercion.
//
// This package contains the loose numeric, string and boolean coercion
// helpers used by the transcoder's coercion engine, plus the safety limits
// the decoder enforces on untrusted input.
//
// # Contents
//
//   - coerce.go: Go host values to integral, floating, byte and bool forms
//   - helpers.go: Limits, overflow-checked arithmetic, nil and type helpers
//
// This package is internal to the transcoder.
package abi
