// Package types defines the descriptor kind discriminator shared by the
// compiler, the codec and schema resolution.
//
// Logical kinds (date, timestamps, uuid) are distinct kinds so coercion can
// apply their rules, but Wire maps each to the primitive that decides its
// byte layout. Promotable encodes Avro's reader/writer promotion table.
//
// This package is internal to the transcoder.
package types
