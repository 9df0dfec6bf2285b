// Package avromodel provides schema-driven Avro models for Go.
//
// A model is compiled once from a parsed Avro record schema (and an optional
// key schema) and then turns loosely typed Go values into validated
// intermediate values and Avro binary bytes, and back.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	avromodel/           Root package with the SchemaRegistry contract
//	├── transcoder/      Descriptor build, coercion, binary codec, schema resolution
//	├── value/           Intermediate value model and attribute storage
//	├── messaging/       Schema-registry framing and multi-model message decoding
//	├── schemaregistry/  In-memory registry and Confluent REST client
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Build a model and round-trip an instance:
//
//	schema := avro.MustParse(`{"type": "record", "name": "Pair", "namespace": "ns",
//	    "fields": [{"name": "k", "type": "string"}, {"name": "v", "type": ["null", "long"]}]}`)
//
//	c := transcoder.NewCompiler()
//	m, err := c.NewModel(schema, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := m.New(map[string]any{"k": "x", "v": 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	data, _ := m.EncodeValue(inst) // 02 78 02 0a
//	back, _ := m.DecodeValue(data, nil)
//
// # Messaging
//
// Wrap a model with a SchemaRegistry to produce Confluent-framed messages:
//
//	reg := schemaregistry.NewMemory()
//	msg := messaging.New(reg)
//	frame, err := msg.EncodeValue(ctx, inst)
//
// # Type Support
//
//   - Primitives: null, boolean, int, long, float, double, bytes, string
//   - Named: record, enum, fixed
//   - Compound: array, map, union
//   - Logical: date, timestamp-millis, timestamp-micros, uuid
//   - Custom types layered over any named schema
//
// # Thread Safety
//
// Compilers, registries and models are safe for concurrent use. Instance is
// NOT thread-safe and should be used by a single goroutine, or access must be
// synchronized.
package avromodel
