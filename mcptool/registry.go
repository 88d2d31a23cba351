package mcptool

import "fmt"

// Registry is a name-indexed, insertion-ordered collection of tool
// descriptors. It is populated at server setup and never mutated again
// (§5: "the registry is read-only after startup and therefore race-free"),
// so Registry itself carries no synchronization.
type Registry struct {
	order  []string
	byName map[string]*ToolDescriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*ToolDescriptor)}
}

// Add inserts d. Per §9's recommended upgrade over the source's
// last-write-wins behavior, a duplicate name is rejected rather than
// silently overwriting the existing descriptor.
func (r *Registry) Add(d *ToolDescriptor) error {
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("mcptool: duplicate tool name %q", d.Name)
	}
	r.byName[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Get fail-softly looks up a tool by name.
func (r *Registry) Get(name string) (*ToolDescriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Iter returns every registered tool in insertion (registration) order —
// the order tools/list reports them in.
func (r *Registry) Iter() []*ToolDescriptor {
	out := make([]*ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	return len(r.order)
}
