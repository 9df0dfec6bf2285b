package messaging

import (
	"context"
	"sync"

	"github.com/hamba/avro/v2"
	"go.uber.org/zap"

	avromodel "github.com/wippyai/avro-model"
	"github.com/wippyai/avro-model/errors"
	"github.com/wippyai/avro-model/transcoder"
)

// SubjectFunc names the registry subject for a model schema.
type SubjectFunc func(schema *avro.RecordSchema, key bool) string

// FullNameSubject uses the schema full name as subject for both keys and
// values.
func FullNameSubject(schema *avro.RecordSchema, _ bool) string {
	return schema.FullName()
}

// TopicSubject follows the Confluent topic naming strategy:
// "<topic>-key" and "<topic>-value".
func TopicSubject(topic string) SubjectFunc {
	return func(_ *avro.RecordSchema, key bool) string {
		if key {
			return topic + "-key"
		}
		return topic + "-value"
	}
}

// Messaging encodes model instances as registry-framed messages and decodes
// them back, resolving against the writer schema the frame names.
type Messaging struct {
	registry avromodel.SchemaRegistry
	logger   *zap.Logger
	metrics  *Metrics
	subject  SubjectFunc

	mu      sync.RWMutex
	ids     map[registration]int
	schemas map[int]avro.Schema
}

// registration caches ids per parsed schema, not per canonical fingerprint,
// since schemas differing only in defaults are registered separately.
type registration struct {
	subject string
	schema  *avro.RecordSchema
}

// Option configures a Messaging.
type Option func(*Messaging)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Messaging) {
		m.logger = l
	}
}

// WithMetrics records message and schema fetch counts.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Messaging) {
		m.metrics = metrics
	}
}

// WithSubject sets the subject naming strategy. The default is
// FullNameSubject.
func WithSubject(fn SubjectFunc) Option {
	return func(m *Messaging) {
		m.subject = fn
	}
}

// New creates a Messaging backed by registry.
func New(registry avromodel.SchemaRegistry, opts ...Option) *Messaging {
	m := &Messaging{
		registry: registry,
		logger:   zap.NewNop(),
		subject:  FullNameSubject,
		ids:      make(map[registration]int),
		schemas:  make(map[int]avro.Schema),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EncodeValue encodes the value side of inst, registering the value schema
// on first use.
func (m *Messaging) EncodeValue(ctx context.Context, inst *transcoder.Instance) ([]byte, error) {
	frame, err := m.encode(ctx, inst, false)
	if err != nil {
		m.metrics.failure(OpEncodeValue)
		return nil, err
	}
	m.metrics.message(OpEncodeValue, len(frame))
	return frame, nil
}

// EncodeKey encodes the key side of inst, registering the key schema on
// first use.
func (m *Messaging) EncodeKey(ctx context.Context, inst *transcoder.Instance) ([]byte, error) {
	frame, err := m.encode(ctx, inst, true)
	if err != nil {
		m.metrics.failure(OpEncodeKey)
		return nil, err
	}
	m.metrics.message(OpEncodeKey, len(frame))
	return frame, nil
}

func (m *Messaging) encode(ctx context.Context, inst *transcoder.Instance, key bool) ([]byte, error) {
	if inst == nil {
		return nil, errors.InvalidData(errors.PhaseEncode, nil, "nil instance")
	}
	model := inst.Model()

	var (
		payload []byte
		schema  *avro.RecordSchema
		err     error
	)
	if key {
		payload, err = model.EncodeKey(inst)
		schema = model.KeySchema()
	} else {
		payload, err = model.EncodeValue(inst)
		schema = model.ValueSchema()
	}
	if err != nil {
		return nil, err
	}

	id, err := m.register(ctx, schema, key)
	if err != nil {
		return nil, err
	}
	return Frame(id, payload), nil
}

// RegisterSchemas registers the value schema of model, and its key schema
// when it has one, and returns their ids. The key id is 0 for models
// without a key.
func (m *Messaging) RegisterSchemas(ctx context.Context, model *transcoder.Model) (keyID, valueID int, err error) {
	if model.HasKey() {
		if keyID, err = m.register(ctx, model.KeySchema(), true); err != nil {
			return 0, 0, err
		}
	}
	if valueID, err = m.register(ctx, model.ValueSchema(), false); err != nil {
		return 0, 0, err
	}
	return keyID, valueID, nil
}

func (m *Messaging) register(ctx context.Context, schema *avro.RecordSchema, key bool) (int, error) {
	reg := registration{subject: m.subject(schema, key), schema: schema}

	m.mu.RLock()
	id, ok := m.ids[reg]
	m.mu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := m.registry.Register(ctx, reg.subject, schema)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.ids[reg] = id
	m.schemas[id] = schema
	m.mu.Unlock()

	m.logger.Debug("schema registered",
		zap.String("subject", reg.subject),
		zap.String("schema", schema.FullName()),
		zap.Int("id", id),
	)
	return id, nil
}

// DecodeValue decodes a framed value message into an instance of model.
func (m *Messaging) DecodeValue(ctx context.Context, model *transcoder.Model, data []byte) (*transcoder.Instance, error) {
	return m.Decode(ctx, model, nil, data)
}

// DecodeKey decodes a framed key message. Only key attributes are set.
func (m *Messaging) DecodeKey(ctx context.Context, model *transcoder.Model, data []byte) (*transcoder.Instance, error) {
	inst, err := m.decodeKey(ctx, model, data)
	if err != nil {
		m.metrics.failure(OpDecode)
		return nil, err
	}
	m.metrics.message(OpDecode, len(data))
	return inst, nil
}

func (m *Messaging) decodeKey(ctx context.Context, model *transcoder.Model, data []byte) (*transcoder.Instance, error) {
	writer, payload, err := m.writer(ctx, data)
	if err != nil {
		return nil, err
	}
	return model.DecodeKey(payload, writer)
}

// Decode decodes a message into an instance of model. A nil key decodes the
// value alone; otherwise key attributes override value attributes.
func (m *Messaging) Decode(ctx context.Context, model *transcoder.Model, key, value []byte) (*transcoder.Instance, error) {
	inst, err := m.decode(ctx, model, key, value)
	if err != nil {
		m.metrics.failure(OpDecode)
		return nil, err
	}
	m.metrics.message(OpDecode, len(key)+len(value))
	return inst, nil
}

func (m *Messaging) decode(ctx context.Context, model *transcoder.Model, key, value []byte) (*transcoder.Instance, error) {
	valueWriter, valuePayload, err := m.writer(ctx, value)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return model.DecodeValue(valuePayload, valueWriter)
	}

	keyWriter, keyPayload, err := m.writer(ctx, key)
	if err != nil {
		return nil, err
	}
	return model.DecodeMessage(keyPayload, valuePayload, keyWriter, valueWriter)
}

// writer parses the frame header and returns the writer schema it names.
func (m *Messaging) writer(ctx context.Context, data []byte) (avro.Schema, []byte, error) {
	id, payload, err := ParseHeader(data)
	if err != nil {
		return nil, nil, err
	}
	schema, err := m.Schema(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return schema, payload, nil
}

// Schema returns the schema registered under id, fetching it from the
// registry once.
func (m *Messaging) Schema(ctx context.Context, id int) (avro.Schema, error) {
	m.mu.RLock()
	schema, ok := m.schemas[id]
	m.mu.RUnlock()
	if ok {
		m.metrics.fetch(FetchCached)
		return schema, nil
	}

	schema, err := m.registry.Fetch(ctx, id)
	if err != nil {
		m.metrics.fetch(FetchFailure)
		m.logger.Error("schema fetch failed", zap.Int("id", id), zap.Error(err))
		return nil, err
	}
	m.metrics.fetch(FetchRemote)

	m.mu.Lock()
	m.schemas[id] = schema
	m.mu.Unlock()

	m.logger.Debug("schema fetched", zap.Int("id", id))
	return schema, nil
}
