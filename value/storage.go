package value

// Storage is the per-instance attribute store the coercion engine writes into
// and the binary codec reads from.
type Storage interface {
	Get(name string) (Value, bool)
	Set(name string, v Value)
	// Range calls fn for each stored attribute in insertion order until fn
	// returns false.
	Range(fn func(name string, v Value) bool)
	Len() int
}

// Attributes is the default Storage: an insertion-ordered map.
// It is not safe for concurrent mutation.
type Attributes struct {
	index map[string]int
	names []string
	vals  []Value
}

// NewAttributes returns an empty store sized for n attributes.
func NewAttributes(n int) *Attributes {
	return &Attributes{
		index: make(map[string]int, n),
		names: make([]string, 0, n),
		vals:  make([]Value, 0, n),
	}
}

func (a *Attributes) Get(name string) (Value, bool) {
	i, ok := a.index[name]
	if !ok {
		return nil, false
	}
	return a.vals[i], true
}

func (a *Attributes) Set(name string, v Value) {
	if i, ok := a.index[name]; ok {
		a.vals[i] = v
		return
	}
	if a.index == nil {
		a.index = make(map[string]int)
	}
	a.index[name] = len(a.names)
	a.names = append(a.names, name)
	a.vals = append(a.vals, v)
}

func (a *Attributes) Range(fn func(name string, v Value) bool) {
	for i, name := range a.names {
		if !fn(name, a.vals[i]) {
			return
		}
	}
}

func (a *Attributes) Len() int { return len(a.names) }
