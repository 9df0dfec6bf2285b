package schemaregistry

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/hamba/avro/v2"

	"github.com/wippyai/avro-model/errors"
)

// Memory is an in-process schema registry. Ids are assigned sequentially
// from 1 and are stable per full schema document: registering the same
// schema under another subject returns the id it already has, while
// schemas differing only in defaults or aliases get distinct ids.
type Memory struct {
	mu       sync.RWMutex
	schemas  []avro.Schema
	ids      map[[32]byte]int
	subjects map[string][]int
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		ids:      make(map[[32]byte]int),
		subjects: make(map[string][]int),
	}
}

// Register stores schema under subject and returns its id.
func (m *Memory) Register(ctx context.Context, subject string, schema avro.Schema) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fp, _, err := identity(schema)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.ids[fp]
	if !ok {
		m.schemas = append(m.schemas, schema)
		id = len(m.schemas)
		m.ids[fp] = id
	}
	for _, existing := range m.subjects[subject] {
		if existing == id {
			return id, nil
		}
	}
	m.subjects[subject] = append(m.subjects[subject], id)
	return id, nil
}

// Fetch returns the schema registered under id.
func (m *Memory) Fetch(ctx context.Context, id int) (avro.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if id < 1 || id > len(m.schemas) {
		return nil, errors.NotFound(errors.PhaseRegistry, "schema id", strconv.Itoa(id))
	}
	return m.schemas[id-1], nil
}

// Lookup returns the id of schema if it is registered under subject.
func (m *Memory) Lookup(ctx context.Context, subject string, schema avro.Schema) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	fp, _, err := identity(schema)
	if err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if id, ok := m.ids[fp]; ok {
		for _, existing := range m.subjects[subject] {
			if existing == id {
				return id, nil
			}
		}
	}
	return 0, errors.NotFound(errors.PhaseRegistry, "schema under subject", subject)
}

// Subjects returns the registered subjects in sorted order.
func (m *Memory) Subjects() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.subjects))
	for s := range m.subjects {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Versions returns the schema ids registered under subject, oldest first.
// Version n of the subject is element n-1.
func (m *Memory) Versions(subject string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]int(nil), m.subjects[subject]...)
}

// Len returns the number of distinct schemas.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.schemas)
}
