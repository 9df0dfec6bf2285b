package messaging

import (
	"context"
	"fmt"

	"github.com/hamba/avro/v2"

	"github.com/wippyai/avro-model/transcoder"
)

// ModelKey identifies a model by its key and value schema full names. Key
// is empty for models without a key schema.
type ModelKey struct {
	Key   string
	Value string
}

func (k ModelKey) String() string {
	return fmt.Sprintf("[%q %q]", k.Key, k.Value)
}

// KeyOf returns the ModelKey of model.
func KeyOf(model *transcoder.Model) ModelKey {
	k := ModelKey{Value: model.ValueSchema().FullName()}
	if model.HasKey() {
		k.Key = model.KeySchema().FullName()
	}
	return k
}

// DuplicateKeyError is returned when two distinct models share a ModelKey.
type DuplicateKeyError struct {
	Key    ModelKey
	Models [2]*transcoder.Model
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("multiple models have the same key %s", e.Key)
}

// UnexpectedKeyError is returned when a message's writer schemas match no
// known model.
type UnexpectedKeyError struct {
	KeySchemaName   string
	ValueSchemaName string
}

func (e *UnexpectedKeyError) Error() string {
	return fmt.Sprintf("unexpected schemas %s", ModelKey{e.KeySchemaName, e.ValueSchemaName})
}

// MessageDecoder picks the model for a message from the full names of the
// writer schemas in its frames, then decodes with it.
type MessageDecoder struct {
	messaging *Messaging
	models    map[ModelKey]*transcoder.Model
}

// NewMessageDecoder maps each model by KeyOf. Passing the same model twice
// is allowed.
func NewMessageDecoder(m *Messaging, models ...*transcoder.Model) (*MessageDecoder, error) {
	byKey := make(map[ModelKey]*transcoder.Model, len(models))
	for _, model := range models {
		k := KeyOf(model)
		if existing, ok := byKey[k]; ok && existing != model {
			return nil, &DuplicateKeyError{Key: k, Models: [2]*transcoder.Model{existing, model}}
		}
		byKey[k] = model
	}
	return &MessageDecoder{messaging: m, models: byKey}, nil
}

// Model returns the model registered for the message. key may be nil.
func (d *MessageDecoder) Model(ctx context.Context, key, value []byte) (*transcoder.Model, error) {
	var k ModelKey
	name, err := d.schemaName(ctx, value)
	if err != nil {
		return nil, err
	}
	k.Value = name

	if key != nil {
		if k.Key, err = d.schemaName(ctx, key); err != nil {
			return nil, err
		}
	}

	model, ok := d.models[k]
	if !ok {
		return nil, &UnexpectedKeyError{KeySchemaName: k.Key, ValueSchemaName: k.Value}
	}
	return model, nil
}

// Decode decodes the message with the model its schemas select.
func (d *MessageDecoder) Decode(ctx context.Context, key, value []byte) (*transcoder.Instance, error) {
	model, err := d.Model(ctx, key, value)
	if err != nil {
		return nil, err
	}
	return d.messaging.Decode(ctx, model, key, value)
}

// DecodeMap decodes the message and returns its attributes as host values.
func (d *MessageDecoder) DecodeMap(ctx context.Context, key, value []byte) (map[string]any, error) {
	inst, err := d.Decode(ctx, key, value)
	if err != nil {
		return nil, err
	}
	return inst.ToMap()
}

func (d *MessageDecoder) schemaName(ctx context.Context, data []byte) (string, error) {
	id, _, err := ParseHeader(data)
	if err != nil {
		return "", err
	}
	schema, err := d.messaging.Schema(ctx, id)
	if err != nil {
		return "", err
	}
	if named, ok := schema.(avro.NamedSchema); ok {
		return named.FullName(), nil
	}
	return string(schema.Type()), nil
}
