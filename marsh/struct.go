package marsh

import (
	"fmt"
	"reflect"
)

// FieldSpec describes one field of a struct-compose or struct-decompose
// descriptor: its wire name, the descriptor that reads/writes it, and
// whether it may be absent (and if so, its default).
type FieldSpec struct {
	// Name is the wire-visible key (the JSON object key).
	Name string
	// ReflectName is the Go struct field name to read/write via reflection
	// or map[string]any lookup. Defaults to Name when empty.
	ReflectName string
	Child       Descriptor
	Optional    bool
	Default     any
}

func (f FieldSpec) attrName() string {
	if f.ReflectName != "" {
		return f.ReflectName
	}
	return f.Name
}

// StructComposeDescriptor turns a Go struct into an ordered sequence of
// NamedValues, one per declared field, dropping optional fields whose value
// equals their declared Default (the canonical JSON round-trip rule:
// optional fields at their default may disappear on encode). Grounds AnyIntoStruct from
// vow/marsh/impl/any_into.py together with the per-field AnyAnyField wrapper.
type StructComposeDescriptor struct {
	Fields []FieldSpec
}

// StructCompose returns a descriptor that serializes an object's declared
// fields in order.
func StructCompose(fields []FieldSpec) *StructComposeDescriptor {
	return &StructComposeDescriptor{Fields: fields}
}

func (d *StructComposeDescriptor) Dependencies() map[string]Descriptor {
	out := make(map[string]Descriptor, len(d.Fields))
	for _, f := range d.Fields {
		out["field:"+f.Name] = f.Child
	}
	return out
}

func (d *StructComposeDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	fields := d.Fields
	return MapperFunc(func(v any) (any, error) {
		out := make([]NamedValue, 0, len(fields))
		for _, f := range fields {
			raw, ok := lookupAttr(v, f.attrName())
			if !ok {
				return nil, NewError(ReasonAttrMissing, v, nil).WithPath(f.Name)
			}
			mapped, err := children["field:"+f.Name].Apply(raw)
			if err != nil {
				return nil, wrapPath(err, f.Name)
			}
			if f.Optional && valueEqual(mapped, f.Default) {
				continue
			}
			if IsAbsent(mapped) {
				continue
			}
			out = append(out, NamedValue{Name: f.Name, Value: mapped, Present: true})
		}
		return out, nil
	}), nil
}

func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// StructDecomposeDescriptor constructs a Go value of Target from a
// map[string]any (or from the []NamedValue a StructCompose produced),
// applying each field's descriptor to the corresponding key. A missing key on a non-optional field fails ReasonKeyMissing with a
// path of exactly the field name. Grounds AnyFromStruct from
// vow/marsh/impl/any_from.py.
type StructDecomposeDescriptor struct {
	Target reflect.Type
	Fields []FieldSpec
}

// StructDecompose returns a descriptor that builds a target value from a
// decoded JSON object.
func StructDecompose(target reflect.Type, fields []FieldSpec) *StructDecomposeDescriptor {
	return &StructDecomposeDescriptor{Target: target, Fields: fields}
}

func (d *StructDecomposeDescriptor) Dependencies() map[string]Descriptor {
	out := make(map[string]Descriptor, len(d.Fields))
	for _, f := range d.Fields {
		out["field:"+f.Name] = f.Child
	}
	return out
}

func (d *StructDecomposeDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	target := d.Target
	fields := d.Fields
	return MapperFunc(func(v any) (any, error) {
		m, ok := namedValuesToMap(v).(map[string]any)
		if !ok {
			return nil, NewError(ReasonInvalidObj, v, nil)
		}

		out := reflect.New(target).Elem()
		for _, f := range fields {
			raw, present := m[f.Name]
			if !present {
				if f.Optional {
					setField(out, f.attrName(), f.Default)
					continue
				}
				return nil, (&Error{Reason: ReasonKeyMissing, Value: v, Path: []string{f.Name}})
			}
			mapped, err := children["field:"+f.Name].Apply(raw)
			if err != nil {
				return nil, wrapPath(err, f.Name)
			}
			setField(out, f.attrName(), mapped)
		}
		return out.Addr().Interface(), nil
	}), nil
}

func setField(out reflect.Value, name string, value any) {
	fv := out.FieldByName(name)
	if !fv.IsValid() || !fv.CanSet() {
		return
	}
	setValue(fv, value)
}

func setValue(fv reflect.Value, value any) {
	if value == nil {
		return
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return
	}
	if rv.Kind() == reflect.Pointer && rv.Type().Elem() == fv.Type() && !rv.IsNil() {
		fv.Set(rv.Elem())
		return
	}
	if rv.Kind() == reflect.Slice && fv.Kind() == reflect.Slice {
		s := reflect.MakeSlice(fv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			setValue(s.Index(i), rv.Index(i).Interface())
		}
		fv.Set(s)
		return
	}
	if rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
	}
}

// DiscriminatorDescriptor dispatches to one of several subtree mappers based
// on a discriminant computed from the value; the discriminant's mapped
// result selects a key into Variants. Grounds AnyAnyDiscriminantMapper from
// vow/marsh/impl/any.py.
type DiscriminatorDescriptor struct {
	Discriminant Descriptor
	Value        Descriptor
	// Variants maps each discriminant key (the wire string) to the
	// descriptor for that branch, keyed the same way Table in
	// EnumEncode/Decode is: by the discriminant's mapped scalar.
	Variants map[string]Descriptor
}

// Discriminator returns a descriptor that picks a subtree by discriminant.
func Discriminator(discriminant, value Descriptor, variants map[string]Descriptor) *DiscriminatorDescriptor {
	return &DiscriminatorDescriptor{Discriminant: discriminant, Value: value, Variants: variants}
}

func (d *DiscriminatorDescriptor) Dependencies() map[string]Descriptor {
	out := make(map[string]Descriptor, len(d.Variants)+2)
	out["$discriminant"] = d.Discriminant
	out["$value"] = d.Value
	for k, v := range d.Variants {
		out["variant:"+k] = v
	}
	return out
}

func (d *DiscriminatorDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	variantKeys := make(map[string]bool, len(d.Variants))
	for k := range d.Variants {
		variantKeys[k] = true
	}
	return MapperFunc(func(v any) (any, error) {
		disc, err := children["$discriminant"].Apply(v)
		if err != nil {
			return nil, wrapPath(err, "$discriminant")
		}
		key, ok := disc.(string)
		if !ok || !variantKeys[key] {
			return nil, (&Error{Reason: ReasonKeyMissing, Value: disc, Path: []string{"$value"}}).WithPath(fmt.Sprintf("%v", disc))
		}
		val, err := children["$value"].Apply(v)
		if err != nil {
			return nil, wrapPath(err, "$value")
		}
		out, err := children["variant:"+key].Apply(val)
		return out, wrapPath(err, "$sub")
	}), nil
}
