// Package schemaregistry provides implementations of avromodel.SchemaRegistry.
//
// Memory keeps schemas in process and is what tests and single-binary tools
// use. Client speaks the Confluent schema registry REST API:
//
//	POST /subjects/{subject}/versions   register, answers {"id": N}
//	POST /subjects/{subject}            look up an existing registration
//	GET  /schemas/ids/{id}              fetch, answers {"schema": "..."}
//	GET  /subjects                      list subjects
//
// Both assign ids per canonical schema, so the same schema registered under
// two subjects shares one id.
package schemaregistry

import avromodel "github.com/wippyai/avro-model"

var (
	_ avromodel.SchemaRegistry = (*Memory)(nil)
	_ avromodel.SchemaRegistry = (*Client)(nil)
)
