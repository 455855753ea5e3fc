package params

// Set is an insertion-ordered collection of live Parameters for one request.
// Declaration order is preserved so parents always precede their children
// during iteration. A Set produced by cascade propagation is a diff: it holds
// only the touched parameters and is folded into the full set via Merge.
type Set struct {
	names  []string
	byName map[string]Parameter
}

// NewSet constructs an empty Set with capacity for n parameters.
func NewSet(n int) Set {
	return Set{
		names:  make([]string, 0, n),
		byName: make(map[string]Parameter, n),
	}
}

// Add inserts or replaces the parameter under its config name. Insertion
// order is recorded on first add and kept on replacement.
func (s *Set) Add(p Parameter) {
	if s.byName == nil {
		s.byName = make(map[string]Parameter)
	}
	name := p.Config.Name
	if _, exists := s.byName[name]; !exists {
		s.names = append(s.names, name)
	}
	s.byName[name] = p
}

// Get returns the parameter registered under name.
func (s Set) Get(name string) (Parameter, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Names returns the parameter names in insertion order.
func (s Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of parameters in the set.
func (s Set) Len() int {
	return len(s.names)
}

// Merge returns a new Set combining the receiver with other; other wins on
// name collisions. The receiver's iteration order is preserved for names it
// already holds, and names only present in other are appended in other's
// order. Neither input is modified.
func (s Set) Merge(other Set) Set {
	merged := NewSet(len(s.names) + len(other.names))
	for _, name := range s.names {
		if p, ok := other.byName[name]; ok {
			merged.Add(p)
			continue
		}
		merged.Add(s.byName[name])
	}
	for _, name := range other.names {
		if _, ok := s.byName[name]; !ok {
			merged.Add(other.byName[name])
		}
	}
	return merged
}
