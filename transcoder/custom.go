package transcoder

import (
	"sync"

	"github.com/wippyai/avro-model/errors"
)

// CustomType layers a host-value transform over a named schema's underlying
// wire representation. Serialize turns the custom host value back into a
// value the underlying descriptor can coerce; Deserialize turns an underlying
// host value (or any accepted input) into the custom host value.
// A nil hook is the identity.
type CustomType struct {
	Serialize   func(any) (any, error)
	Deserialize func(any) (any, error)
	Name        string
}

func (ct *CustomType) serialize(v any) (any, error) {
	if ct.Serialize == nil {
		return v, nil
	}
	return ct.Serialize(v)
}

func (ct *CustomType) deserialize(v any) (any, error) {
	if ct.Deserialize == nil {
		return v, nil
	}
	return ct.Deserialize(v)
}

// CustomTypes maps schema full names to custom types. Descriptors capture
// the custom type at compile time; register before compiling schemas that
// use it.
type CustomTypes struct {
	types map[string]*CustomType
	mu    sync.RWMutex
}

func NewCustomTypes() *CustomTypes {
	return &CustomTypes{types: make(map[string]*CustomType)}
}

// Register associates a (serialize, deserialize) pair with a full name,
// replacing any earlier registration.
func (c *CustomTypes) Register(name string, serialize, deserialize func(any) (any, error)) *CustomType {
	ct := &CustomType{Name: name, Serialize: serialize, Deserialize: deserialize}
	c.mu.Lock()
	c.types[name] = ct
	c.mu.Unlock()
	return ct
}

// Lookup returns the custom type registered for name.
func (c *CustomTypes) Lookup(name string) (*CustomType, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	ct, ok := c.types[name]
	c.mu.RUnlock()
	return ct, ok
}

func customError(phase errors.Phase, path []string, ct *CustomType, cause error) *errors.Error {
	return errors.New(phase, errors.KindCustomType).
		Path(path...).
		AvroType(ct.Name).
		Cause(cause).
		Detail("custom type %s failed", ct.Name).
		Build()
}
