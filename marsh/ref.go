package marsh

import "fmt"

// RefDescriptor names another descriptor by a qualified name instead of
// embedding it directly, letting a Walker describe recursive or
// forward-referenced types (a struct containing a slice of itself, or two
// structs referencing each other) without building an infinite descriptor
// tree. A Linker resolves the name against its Registry once every declared
// type has been walked. Grounds Ref in vow/marsh/impl/any.py, which plays the
// same role keyed by "flavor:qualified-name" in walker.py's node cache.
type RefDescriptor struct {
	Name string
}

// Ref returns a descriptor that defers to whatever the Linker's registry
// resolves name to.
func Ref(name string) *RefDescriptor { return &RefDescriptor{Name: name} }

func (d *RefDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"$ref": refPlaceholder{name: d.Name}}
}

func (d *RefDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	name := d.Name
	return MapperFunc(func(v any) (any, error) {
		target, ok := children["$ref"]
		if !ok {
			return nil, NewError(ReasonConfig, v, fmt.Errorf("unresolved ref %q", name))
		}
		return target.Apply(v)
	}), nil
}

// refPlaceholder is a zero-dependency marker descriptor the Linker recognizes
// and substitutes with the real, already-registered descriptor for Name
// before graph construction proceeds. It never reaches Build itself.
type refPlaceholder struct {
	leaf
	name string
}

func (refPlaceholder) Build(map[string]Mapper) (Mapper, error) {
	return nil, fmt.Errorf("marsh: refPlaceholder must be resolved by the linker before Build")
}

// Registry names every top-level descriptor reachable by a Walker, keyed the
// way walker.py keys its node cache: "flavor:qualified-name". A Linker
// consults it to resolve RefDescriptors and to avoid re-walking a type it has
// already described.
type Registry struct {
	entries map[string]Descriptor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

// Register records d under key, the qualified "flavor:name" the Walker
// assigned it. Re-registering the same key is a no-op so that recursive
// walks that reach the same type twice converge on one entry.
func (r *Registry) Register(key string, d Descriptor) {
	if _, ok := r.entries[key]; ok {
		return
	}
	r.entries[key] = d
}

// Lookup returns the descriptor registered under key, if any.
func (r *Registry) Lookup(key string) (Descriptor, bool) {
	d, ok := r.entries[key]
	return d, ok
}

// Keys returns every registered key, in no particular order.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	return out
}
