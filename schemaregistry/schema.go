package schemaregistry

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/hamba/avro/v2"

	"github.com/wippyai/avro-model/errors"
)

// SchemaText renders schema as its full JSON document. Unlike the canonical
// form it keeps field defaults, aliases and enum defaults, which readers
// fetching the schema by id rely on.
func SchemaText(schema avro.Schema) (string, error) {
	if schema == nil {
		return "", errors.InvalidData(errors.PhaseRegistry, nil, "nil schema")
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return "", errors.Wrap(errors.PhaseRegistry, errors.KindInvalidSchema, err, "render schema")
	}
	return string(b), nil
}

// identity keys a schema by its full JSON document, so schemas differing
// only in defaults or aliases get distinct ids.
func identity(schema avro.Schema) ([32]byte, string, error) {
	text, err := SchemaText(schema)
	if err != nil {
		return [32]byte{}, "", err
	}
	return sha256.Sum256([]byte(text)), text, nil
}
