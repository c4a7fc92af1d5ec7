package marsh

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	bytesType    = reflect.TypeOf([]byte(nil))
)

// EnumSpec supplies the fixed variant table for a named Go type (typically a
// defined string or int type) that the Walker cannot infer from reflection
// alone, the same way a declarative enum listing in a pipeline config names
// its members explicitly rather than the loader guessing them.
type EnumSpec struct {
	// Encode maps each Go variant value to its wire scalar.
	Encode map[any]any
	// Decode maps each wire scalar back to its Go variant value. If nil,
	// the Walker inverts Encode.
	Decode map[any]any
}

// Walker builds Descriptors for Go types by reflection, registering one
// entry per (flavor, type) pair in a shared Registry so that a type reached
// twice - including through a cycle - resolves to the same descriptor
// instance. Grounds Walker.resolve() in vow/marsh/walker.py, which performs
// the identical type-driven dispatch (primitive / optional / sequence /
// mapping / enum / declared class) against Python's typing module instead of
// reflect.
type Walker struct {
	Registry *Registry
	// Enums supplies the variant table for named enum-like types keyed by
	// their reflect.Type.
	Enums map[reflect.Type]EnumSpec
}

// NewWalker returns a Walker sharing registry, the same Registry a Linker
// will later resolve RefDescriptors against.
func NewWalker(registry *Registry) *Walker {
	return &Walker{Registry: registry, Enums: make(map[reflect.Type]EnumSpec)}
}

// forwardDescriptor is registered for a struct type before its fields are
// walked, so that a field referring back to the same type (directly, or
// through a slice/map/pointer of it) closes the cycle by sharing this
// pointer rather than recursing forever. Once the struct's real descriptor
// is built, target is set once and never mutated again.
type forwardDescriptor struct {
	target Descriptor
}

func (f *forwardDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"$fwd": f.target}
}

func (f *forwardDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		return children["$fwd"].Apply(v)
	}), nil
}

// Walk returns the descriptor for t under flavor, building and registering
// it (and every type it depends on) on first use.
func (w *Walker) Walk(t reflect.Type, flavor Flavor) (Descriptor, error) {
	if flavor == BinaryEncode || flavor == BinaryDecode {
		return w.walkBinary(t, flavor)
	}

	if spec, ok := w.Enums[t]; ok {
		return w.walkEnum(t, flavor, spec)
	}

	switch t {
	case timeType:
		if flavor == JSONEncode {
			return TimestampEncode(), nil
		}
		return TimestampDecode(), nil
	case durationType:
		if flavor == JSONEncode {
			return DurationEncode(), nil
		}
		return DurationDecode(), nil
	}

	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if flavor == JSONEncode {
			return Identity(), nil
		}
		return Coerce(t), nil

	case reflect.Ptr:
		elem, err := w.Walk(t.Elem(), flavor)
		if err != nil {
			return nil, err
		}
		if flavor == JSONEncode {
			return Optional(elem), nil
		}
		return &pointerDecodeDescriptor{Child: elem, ElemType: t.Elem()}, nil

	case reflect.Slice, reflect.Array:
		if t == bytesType && flavor == JSONEncode {
			return Identity(), nil
		}
		elem, err := w.Walk(t.Elem(), flavor)
		if err != nil {
			return nil, err
		}
		return List(elem), nil

	case reflect.Map:
		key, err := w.Walk(t.Key(), flavor)
		if err != nil {
			return nil, err
		}
		val, err := w.Walk(t.Elem(), flavor)
		if err != nil {
			return nil, err
		}
		return Map(key, val), nil

	case reflect.Struct:
		return w.walkStruct(t, flavor)

	default:
		return nil, fmt.Errorf("marsh: walker has no mapping for kind %s (%s)", t.Kind(), t)
	}
}

func (w *Walker) walkEnum(t reflect.Type, flavor Flavor, spec EnumSpec) (Descriptor, error) {
	if flavor == JSONEncode {
		return EnumEncode(spec.Encode), nil
	}
	decode := spec.Decode
	if decode == nil {
		decode = make(map[any]any, len(spec.Encode))
		for k, v := range spec.Encode {
			decode[v] = k
		}
	}
	return EnumDecode(decode), nil
}

// fieldTag is the parsed form of a `marsh:"name,optional"` struct tag.
type fieldTag struct {
	name     string
	optional bool
	skip     bool
}

func parseFieldTag(f reflect.StructField) fieldTag {
	raw, ok := f.Tag.Lookup("marsh")
	if !ok {
		return fieldTag{name: f.Name}
	}
	parts := strings.Split(raw, ",")
	if parts[0] == "-" {
		return fieldTag{skip: true}
	}
	tag := fieldTag{name: f.Name}
	if parts[0] != "" {
		tag.name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "optional" {
			tag.optional = true
		}
	}
	return tag
}

func (w *Walker) walkStruct(t reflect.Type, flavor Flavor) (Descriptor, error) {
	key := registryKey(flavor, qualifiedName(t))
	if existing, ok := w.Registry.Lookup(key); ok {
		if fwd, ok := existing.(*forwardDescriptor); ok && fwd.target != nil {
			return fwd.target, nil
		}
		return existing, nil
	}

	fwd := &forwardDescriptor{}
	w.Registry.Register(key, fwd)

	fields := make([]FieldSpec, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := parseFieldTag(sf)
		if tag.skip {
			continue
		}
		childFlavor := flavor
		child, err := w.Walk(sf.Type, childFlavor)
		if err != nil {
			return nil, fmt.Errorf("marsh: field %s.%s: %w", t.Name(), sf.Name, err)
		}
		fields = append(fields, FieldSpec{
			Name:        tag.name,
			ReflectName: sf.Name,
			Child:       &structFieldDescriptor{reflectName: sf.Name, child: child},
			Optional:    tag.optional || sf.Type.Kind() == reflect.Ptr,
			Default:     reflect.Zero(sf.Type).Interface(),
		})
	}

	var real Descriptor
	if flavor == JSONEncode {
		real = StructCompose(fields)
	} else {
		real = StructDecompose(t, fields)
	}
	fwd.target = real
	w.Registry.Register(key, real)
	return real, nil
}

// structFieldDescriptor adapts a field's element descriptor to the
// Dependencies/Build contract StructCompose/StructDecompose expect their
// per-field Child to satisfy; it is a transparent pass-through that exists
// so FieldSpec.Child can carry an already-walked descriptor directly.
type structFieldDescriptor struct {
	reflectName string
	child       Descriptor
}

func (d *structFieldDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"inner": d.child}
}

func (d *structFieldDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		return children["inner"].Apply(v)
	}), nil
}

// pointerDecodeDescriptor decodes a JSON-decode child and boxes its result
// into a freshly allocated *ElemType, or returns a nil pointer when the
// input was absent - the decode-side mirror of OptionalDescriptor, needed
// because Go represents "optional field" as a pointer rather than Python's
// None-or-value union.
type pointerDecodeDescriptor struct {
	Child    Descriptor
	ElemType reflect.Type
}

func (d *pointerDecodeDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"child": d.Child}
}

func (d *pointerDecodeDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	elemType := d.ElemType
	return MapperFunc(func(v any) (any, error) {
		if v == nil || IsAbsent(v) {
			return reflect.Zero(reflect.PtrTo(elemType)).Interface(), nil
		}
		out, err := children["child"].Apply(v)
		if err != nil {
			return nil, wrapPath(err, "$ptr")
		}
		box := reflect.New(elemType)
		rv := reflect.ValueOf(out)
		if rv.IsValid() && rv.Type().AssignableTo(elemType) {
			box.Elem().Set(rv)
		} else if rv.IsValid() && rv.Type() == reflect.PtrTo(elemType) {
			return out, nil
		}
		return box.Interface(), nil
	}), nil
}

// walkBinary builds the binary-flavor descriptor for t by composing the
// JSON-flavor descriptor with the frame-level JSON<->bytes codec: the wire
// protocol's payloads are length-prefixed JSON, so "binary encoding of a Go
// value" means "JSON-encode it, then take its JSON bytes", not a distinct
// per-field binary layout.
func (w *Walker) walkBinary(t reflect.Type, flavor Flavor) (Descriptor, error) {
	if flavor == BinaryEncode {
		inner, err := w.Walk(t, JSONEncode)
		if err != nil {
			return nil, err
		}
		return &binaryEncodeWrap{inner: inner}, nil
	}
	inner, err := w.Walk(t, JSONDecode)
	if err != nil {
		return nil, err
	}
	return &binaryDecodeWrap{inner: inner}, nil
}

type binaryEncodeWrap struct{ inner Descriptor }

func (d *binaryEncodeWrap) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"inner": d.inner, "bytes": JSONEncodeBytes()}
}

func (d *binaryEncodeWrap) Build(children map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		tree, err := children["inner"].Apply(v)
		if err != nil {
			return nil, err
		}
		return children["bytes"].Apply(tree)
	}), nil
}

type binaryDecodeWrap struct{ inner Descriptor }

func (d *binaryDecodeWrap) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"inner": d.inner, "bytes": JSONDecodeBytes()}
}

func (d *binaryDecodeWrap) Build(children map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		tree, err := children["bytes"].Apply(v)
		if err != nil {
			return nil, err
		}
		return children["inner"].Apply(tree)
	}), nil
}

func qualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
