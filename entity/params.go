package entity

// ParameterSet is an insertion-ordered set of string parameters for one
// payment request. Order matters: unless an explicit key list is supplied,
// the fingerprint is computed over the values in insertion order.
type ParameterSet struct {
	keys   []string
	values map[string]string
}

func NewParameterSet() *ParameterSet {
	return &ParameterSet{
		values: make(map[string]string),
	}
}

// Set stores a value under key. A new key is appended to the order; setting
// an existing key overwrites the value but keeps its position.
func (p *ParameterSet) Set(key, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *ParameterSet) Get(key string) string {
	return p.values[key]
}

func (p *ParameterSet) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *ParameterSet) Len() int {
	return len(p.keys)
}

// Keys returns the parameter names in insertion order.
func (p *ParameterSet) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// Fields returns a plain map of the parameters, for encoding as form fields.
func (p *ParameterSet) Fields() map[string]string {
	fields := make(map[string]string, len(p.values))
	for k, v := range p.values {
		fields[k] = v
	}
	return fields
}
