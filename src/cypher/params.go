package cypher

// Parameters is a mapping from parameter name to bound value. Each query
// snapshot owns exactly one store; clause constructors keep their own private
// sub-stores which are merged into the snapshot's bindings at execution time.
type Parameters struct {
	values map[string]interface{}
}

// NewParameters creates an empty parameter store.
func NewParameters() *Parameters {
	return &Parameters{values: make(map[string]interface{})}
}

// Add binds value under name, overwriting any previous binding.
func (p *Parameters) Add(name string, value interface{}) {
	p.values[name] = value
}

// AddAll merges every binding from m into the store. Existing names are
// overwritten.
func (p *Parameters) AddAll(m map[string]interface{}) {
	for k, v := range m {
		p.values[k] = v
	}
}

// Copy produces an independent store sharing no state with the receiver.
func (p *Parameters) Copy() *Parameters {
	c := NewParameters()
	for k, v := range p.values {
		c.values[k] = v
	}
	return c
}

// MergeInto writes all bindings into dst, overwriting colliding names.
func (p *Parameters) MergeInto(dst map[string]interface{}) {
	for k, v := range p.values {
		dst[k] = v
	}
}

// ToMap exports the current bindings as a plain name to value mapping,
// suitable for submission to a session.
func (p *Parameters) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// Len reports the number of bound parameters.
func (p *Parameters) Len() int {
	return len(p.values)
}
