package storage

// StringPool interns text to stable ids. Interning is idempotent: equal text
// always yields the same id. Id 0 is the empty string.
type StringPool struct {
	ids  map[string]StringID
	strs []string
}

// NewStringPool creates a pool with the empty string pre-interned as id 0.
func NewStringPool() *StringPool {
	return &StringPool{
		ids:  map[string]StringID{"": 0},
		strs: []string{""},
	}
}

// Intern returns the stable id for s, allocating one if needed.
func (p *StringPool) Intern(s string) StringID {
	if id, ok := p.ids[s]; ok {
		return id
	}
	id := StringID(len(p.strs))
	p.ids[s] = id
	p.strs = append(p.strs, s)
	return id
}

// Get resolves an id back to its text.
func (p *StringPool) Get(id StringID) string {
	return p.strs[id]
}

// Len returns the number of interned strings.
func (p *StringPool) Len() int {
	return len(p.strs)
}
