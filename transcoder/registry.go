package transcoder

import (
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/avro-model/errors"
)

// Registry maps record full names to their nested models. The first model
// registered under a name wins; every later schema declared under that name
// must carry the same canonical fingerprint.
//
// Lookups take a read lock. Builds that may register new models hold the
// build lock for their whole duration, so concurrent first registrations of
// one name produce exactly one model.
type Registry struct {
	models map[string]registered
	prefix string
	mu     sync.RWMutex
	build  sync.Mutex
}

type registered struct {
	model       *Model
	fingerprint [32]byte
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithNamespacePrefix strips prefix, and the dot that follows it, from full
// names before they are used as registry keys.
func WithNamespacePrefix(prefix string) RegistryOption {
	return func(r *Registry) {
		r.prefix = strings.TrimSuffix(prefix, ".")
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{models: make(map[string]registered)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) key(fullName string) string {
	if r.prefix == "" {
		return fullName
	}
	if rest, ok := strings.CutPrefix(fullName, r.prefix+"."); ok {
		return rest
	}
	return fullName
}

// Lookup returns the model registered under fullName.
func (r *Registry) Lookup(fullName string) (*Model, bool) {
	e, ok := r.lookup(r.key(fullName))
	return e.model, ok
}

// Registered reports whether a model is registered under fullName.
func (r *Registry) Registered(fullName string) bool {
	_, ok := r.lookup(r.key(fullName))
	return ok
}

func (r *Registry) lookup(key string) (registered, bool) {
	r.mu.RLock()
	e, ok := r.models[key]
	r.mu.RUnlock()
	return e, ok
}

// RegisterOrValidate registers m under its full name, or returns the model
// already registered there when the fingerprints match.
func (r *Registry) RegisterOrValidate(m *Model) (*Model, error) {
	if m.HasKey() {
		return nil, errors.New(errors.PhaseRegistry, errors.KindUnsupported).
			Detail("model %s has a key schema and cannot be registered as a nested model", m.name).
			Build()
	}
	r.build.Lock()
	defer r.build.Unlock()

	if existing, ok := r.lookup(r.key(m.name)); ok {
		if existing.fingerprint != m.fingerprint {
			return nil, r.mismatch(m.name, existing.fingerprint, m.fingerprint)
		}
		return existing.model, nil
	}
	r.store(m)
	return m, nil
}

// commit stores models created by one build. Callers hold the build lock.
func (r *Registry) commit(models []*Model) error {
	for _, m := range models {
		if existing, ok := r.lookup(r.key(m.name)); ok {
			if existing.fingerprint != m.fingerprint {
				return r.mismatch(m.name, existing.fingerprint, m.fingerprint)
			}
			continue
		}
		r.store(m)
	}
	return nil
}

func (r *Registry) store(m *Model) {
	r.mu.Lock()
	r.models[r.key(m.name)] = registered{model: m, fingerprint: m.fingerprint}
	r.mu.Unlock()
	Logger().Debug("nested model registered",
		zap.String("name", m.name),
		zap.String("fingerprint", hex.EncodeToString(m.fingerprint[:])))
}

func (r *Registry) mismatch(name string, registered, attempted [32]byte) error {
	Logger().Error("nested model fingerprint mismatch",
		zap.String("name", name),
		zap.String("registered", hex.EncodeToString(registered[:])),
		zap.String("attempted", hex.EncodeToString(attempted[:])))
	return &errors.FingerprintMismatchError{Name: name, Registered: registered, Attempted: attempted}
}

// Names returns the registry keys in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Clear removes every registration. Descriptors already compiled keep
// pointing at the models they were built with.
func (r *Registry) Clear() {
	r.build.Lock()
	r.mu.Lock()
	r.models = make(map[string]registered)
	r.mu.Unlock()
	r.build.Unlock()
}
