package marsh

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Descriptor is an immutable, build-time value describing how to transform
// one input kind to one output kind. It enumerates the names of its child
// descriptors (Dependencies) and, once those children have been resolved
// into concrete Mappers by a Linker, produces the runtime Mapper (Build).
//
// This mirrors vow/marsh/base.py's Fac: Fac.dependencies() -> FieldsFac,
// Fac.create(dependencies) -> Mapper.
type Descriptor interface {
	// Dependencies returns the named child descriptors. The Linker resolves
	// each before calling Build.
	Dependencies() map[string]Descriptor
	// Build constructs the Mapper for this descriptor given its already
	// (possibly only partially, for cyclic graphs) resolved children. The
	// children map is shared and mutated in place by the Linker after every
	// node's Mapper has been constructed, so implementations must look up
	// children at Apply time, never at Build time.
	Build(children map[string]Mapper) (Mapper, error)
}

// leaf is embedded by descriptors with no children.
type leaf struct{}

func (leaf) Dependencies() map[string]Descriptor { return nil }

// ---- Identity / Coerce -----------------------------------------------

// IdentityDescriptor passes the value through unchanged. Grounds
// vow/marsh/impl/any.py's ThisMapper with type=None.
type IdentityDescriptor struct{ leaf }

func (d *IdentityDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) { return v, nil }), nil
}

// Identity returns a descriptor for the zero-cost passthrough mapper.
func Identity() *IdentityDescriptor { return &IdentityDescriptor{} }

// CoerceDescriptor attempts a best-effort cast of the value to Target,
// failing with ReasonUnmappable on rejection. Grounds ThisMapper with a
// concrete type in vow/marsh/impl/any.py, generalized via mapstructure's
// weak decoding the way loader/loader.go uses mapstructure.Decode to bind
// declarative options onto typed fields.
type CoerceDescriptor struct {
	leaf
	Target reflect.Type
}

// Coerce returns a descriptor that casts incoming values to target.
func Coerce(target reflect.Type) *CoerceDescriptor {
	return &CoerceDescriptor{Target: target}
}

func (d *CoerceDescriptor) Build(map[string]Mapper) (Mapper, error) {
	target := d.Target
	return MapperFunc(func(v any) (any, error) {
		out := reflect.New(target)
		cfg := &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           out.Interface(),
		}
		dec, err := mapstructure.NewDecoder(cfg)
		if err != nil {
			return nil, NewError(ReasonUnmappable, v, err)
		}
		if err := dec.Decode(v); err != nil {
			return nil, NewError(ReasonUnmappable, v, err)
		}
		return out.Elem().Interface(), nil
	}), nil
}

// ---- Attribute / item lookup -------------------------------------------

// AttrDescriptor looks up a named field on a struct (or field on a
// map[string]any) and then applies a child descriptor. Grounds
// AnyAnyAttrMapper in vow/marsh/impl/any.py.
type AttrDescriptor struct {
	Name  string
	Child Descriptor
}

// Attr returns a descriptor that reads field Name off the input object
// (struct field or map key) and feeds it to child.
func Attr(name string, child Descriptor) *AttrDescriptor {
	return &AttrDescriptor{Name: name, Child: child}
}

func (d *AttrDescriptor) Dependencies() map[string]Descriptor {
	if d.Child == nil {
		return nil
	}
	return map[string]Descriptor{"type": d.Child}
}

func (d *AttrDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	name := d.Name
	hasChild := d.Child != nil
	return MapperFunc(func(v any) (any, error) {
		val, ok := lookupAttr(v, name)
		if !ok {
			return nil, NewError(ReasonAttrMissing, v, nil)
		}
		if !hasChild {
			return val, nil
		}
		out, err := children["type"].Apply(val)
		return out, wrapPath(err, "$attr")
	}), nil
}

func lookupAttr(v any, name string) (any, bool) {
	if m, ok := v.(map[string]any); ok {
		val, ok := m[name]
		return val, ok
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	fv := rv.FieldByName(name)
	if !fv.IsValid() {
		return nil, false
	}
	return fv.Interface(), true
}

// ItemDescriptor looks up a keyed value from a mapping and applies a child
// descriptor. Grounds AnyAnyItemMapper in vow/marsh/impl/any.py.
type ItemDescriptor struct {
	Name  string
	Child Descriptor
}

// Item returns a descriptor that reads key Name from a map[string]any input.
func Item(name string, child Descriptor) *ItemDescriptor {
	return &ItemDescriptor{Name: name, Child: child}
}

func (d *ItemDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"type": d.Child}
}

func (d *ItemDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	name := d.Name
	return MapperFunc(func(v any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, NewError(ReasonInvalidObj, v, nil)
		}
		val, ok := m[name]
		if !ok {
			return nil, NewError(ReasonKeyMissing, v, nil)
		}
		out, err := children["type"].Apply(val)
		return out, wrapPath(err, "$item")
	}), nil
}
