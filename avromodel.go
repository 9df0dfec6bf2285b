package avromodel

import (
	"context"

	"github.com/hamba/avro/v2"
)

// SchemaRegistry stores schemas under subjects and hands out stable numeric
// ids, the way a Confluent-compatible registry does.
type SchemaRegistry interface {
	// Register stores schema under subject and returns its id. Registering
	// a schema that is already known returns the existing id.
	Register(ctx context.Context, subject string, schema avro.Schema) (int, error)

	// Fetch returns the schema registered under id.
	Fetch(ctx context.Context, id int) (avro.Schema, error)
}
