// Package value defines the intermediate value model shared by the coercion
// engine and the binary codec.
//
// A Value is one of Null, Bool, Long, Float, Bytes, Array, Map, Union, Record
// or Custom. It mirrors Avro's value space without referencing a schema:
// strings, bytes, fixed blobs and enum symbols are all Bytes, every integral
// type is a Long, and both float widths are a Float. The descriptor a value
// was coerced against decides how it is written.
//
// Record values do not own their fields. They hold a Storage handle to the
// nested instance's attributes, so a record can be shared between a parent
// and the caller that built it.
package value
