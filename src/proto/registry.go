package proto

import (
	"fmt"
	"sort"
)

// Registry maps type tags to payload constructors. Constructors must return a
// pointer so that the decoder can fill in the fields.
type Registry struct {
	ctors map[string]func() Payload
}

// NewRegistry creates a Registry from a list of constructors. The tag of each
// payload is read by calling Type on a fresh value.
func NewRegistry(ctors ...func() Payload) *Registry {
	r := &Registry{
		ctors: make(map[string]func() Payload, len(ctors)),
	}
	for _, ctor := range ctors {
		r.ctors[ctor().Type()] = ctor
	}
	return r
}

// New returns an empty payload for the given tag.
func (r *Registry) New(typ string) (Payload, error) {
	ctor, ok := r.ctors[typ]
	if !ok {
		return nil, fmt.Errorf("unknown message type %q, expected one of %v", typ, r.Types())
	}
	return ctor(), nil
}

// Merge returns a new Registry knowing the types of r and all others. Later
// registries win on conflicting tags.
func (r *Registry) Merge(others ...*Registry) *Registry {
	merged := &Registry{
		ctors: make(map[string]func() Payload, len(r.ctors)),
	}
	for typ, ctor := range r.ctors {
		merged.ctors[typ] = ctor
	}
	for _, o := range others {
		for typ, ctor := range o.ctors {
			merged.ctors[typ] = ctor
		}
	}
	return merged
}

// Types returns the sorted list of known tags.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.ctors))
	for typ := range r.ctors {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}
