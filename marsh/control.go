package marsh

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LengthDescriptor wraps a child descriptor producing a slice or map and
// enforces a cardinality bound on the result, failing ReasonNotInstance when
// the count falls outside [Min, Max]. Max <= 0 means unbounded. Grounds the
// length-checked sequence wrapper next to AnyAnyList in vow/marsh/impl/any.py.
type LengthDescriptor struct {
	Child    Descriptor
	Min, Max int
}

// Length returns a descriptor that validates child's result count.
func Length(child Descriptor, min, max int) *LengthDescriptor {
	return &LengthDescriptor{Child: child, Min: min, Max: max}
}

func (d *LengthDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"child": d.Child}
}

func (d *LengthDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	min, max := d.Min, d.Max
	return MapperFunc(func(v any) (any, error) {
		out, err := children["child"].Apply(v)
		if err != nil {
			return nil, wrapPath(err, "$length")
		}
		n, err := countOf(out)
		if err != nil {
			return nil, err
		}
		if n < min || (max > 0 && n > max) {
			return nil, NewError(ReasonNotInstance, out, fmt.Errorf("length %d outside [%d,%d]", n, min, max))
		}
		return out, nil
	}), nil
}

func countOf(v any) (int, error) {
	switch x := v.(type) {
	case []any:
		return len(x), nil
	case map[string]any:
		return len(x), nil
	case map[any]any:
		return len(x), nil
	case string:
		return len(x), nil
	case []byte:
		return len(x), nil
	default:
		return 0, NewError(ReasonNotInstance, v, nil)
	}
}

// DefaultDescriptor substitutes Fallback whenever Child's result is the
// Absent sentinel or nil, implementing declared struct-field defaults.
// Grounds FieldValue's default handling in vow/marsh/impl/any.py. Distinct
// from With below: this falls back on absence, With always sequences two
// mappers regardless of the intermediate value.
type DefaultDescriptor struct {
	Child    Descriptor
	Fallback any
}

// Default returns a descriptor that falls back to fallback when child yields
// Absent.
func Default(child Descriptor, fallback any) *DefaultDescriptor {
	return &DefaultDescriptor{Child: child, Fallback: fallback}
}

func (d *DefaultDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"child": d.Child}
}

func (d *DefaultDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	fallback := d.Fallback
	return MapperFunc(func(v any) (any, error) {
		out, err := children["child"].Apply(v)
		if err != nil {
			return nil, wrapPath(err, "$default")
		}
		if out == nil || IsAbsent(out) {
			return fallback, nil
		}
		return out, nil
	}), nil
}

// WithDescriptor sequences two mappers, feeding A's output straight into B:
// value -> B(A(value)). Grounds the general composition primitive
// vow/marsh/base.py's Fac graph relies on to chain a structural mapper (e.g.
// a struct decompose) with a leaf mapper (e.g. an enum decode) without
// introducing a bespoke combined descriptor for every pairing.
type WithDescriptor struct {
	A, B Descriptor
}

// With returns a descriptor applying a, then feeding its result to b.
func With(a, b Descriptor) *WithDescriptor {
	return &WithDescriptor{A: a, B: b}
}

func (d *WithDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"a": d.A, "b": d.B}
}

func (d *WithDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		a, b := children["a"], children["b"]
		mid, err := a.Apply(v)
		if err != nil {
			return nil, wrapPath(err, "$a")
		}
		out, err := b.Apply(mid)
		return out, wrapPath(err, "$b")
	}), nil
}

// LookupInput pairs a dispatch key already extracted from the wire (e.g. a
// Packet's "type" tag) with the raw payload to hand to the selected variant.
type LookupInput struct {
	Key     string
	Payload any
}

// LookupDescriptor dispatches payload to one of several sibling descriptors
// by a key the caller has already extracted, the direct-dispatch counterpart
// to DiscriminatorDescriptor (which extracts the key itself). This is how
// wire.Packet's envelope decoder routes a decoded "type" tag straight to its
// body descriptor without re-deriving the tag from the payload. Grounds the
// PACKET_TYPE_MAP two-way dispatch table in vow/rpc/wire.py.
type LookupDescriptor struct {
	Variants map[string]Descriptor
}

// Lookup returns a descriptor that dispatches a LookupInput by Key.
func Lookup(variants map[string]Descriptor) *LookupDescriptor {
	return &LookupDescriptor{Variants: variants}
}

func (d *LookupDescriptor) Dependencies() map[string]Descriptor {
	out := make(map[string]Descriptor, len(d.Variants))
	for k, v := range d.Variants {
		out["variant:"+k] = v
	}
	return out
}

func (d *LookupDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		in, ok := v.(LookupInput)
		if !ok {
			return nil, NewError(ReasonInvalidObj, v, nil)
		}
		child, ok := children["variant:"+in.Key]
		if !ok {
			return nil, NewError(ReasonInvalidEnumKey, in.Key, nil)
		}
		out, err := child.Apply(in.Payload)
		return out, wrapPath(err, in.Key)
	}), nil
}

// TraceDescriptor wraps a child mapper with a structured debug log entry on
// every application, the marsh-level counterpart of pipe.go's defaultLogger
// instrumentation; it never changes the value or the error it sees.
type TraceDescriptor struct {
	Child Descriptor
	Label string
	Log   *logrus.Logger
}

// Trace returns a descriptor that logs each application of child at debug
// level. A nil log uses logrus's standard logger.
func Trace(label string, child Descriptor, log *logrus.Logger) *TraceDescriptor {
	return &TraceDescriptor{Child: child, Label: label, Log: log}
}

func (d *TraceDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"child": d.Child}
}

func (d *TraceDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	label := d.Label
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return MapperFunc(func(v any) (any, error) {
		out, err := children["child"].Apply(v)
		entry := log.WithField("mapper", label)
		if err != nil {
			entry.WithError(err).Debug("marsh trace: failed")
		} else {
			entry.Debug("marsh trace: ok")
		}
		return out, err
	}), nil
}
