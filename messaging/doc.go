// Package messaging frames Avro-encoded model instances for a schema
// registry.
//
// A framed message is:
//
//	+------+-----------------------+--------------+
//	| 0x00 | schema id (uint32 BE) | Avro payload |
//	+------+-----------------------+--------------+
//
// Encoding registers the model's schema with the SchemaRegistry on first use
// and caches the id. Decoding fetches the writer schema by id and resolves
// it against the model's reader schema, so messages written with an older
// or newer compatible schema decode into the current model.
//
// MessageDecoder handles streams that carry several models: it picks the
// model from the writer schema names in the key and value frames.
package messaging
