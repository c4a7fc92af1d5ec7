// Package marsh implements the reflective data-binding engine: a graph of
// composable "mapper" nodes, assembled from type descriptions by a Walker,
// resolved into concrete mappers by a Linker, and applied to transform
// values between the JSON tree model, the binary wire form, and plain Go
// values.
//
// The split between Descriptor (build-time, immutable, describes a
// transform and its named children) and Mapper (run-time, holds resolved
// - possibly cyclic - child references) follows vow/marsh/base.py's
// Fac/Mapper split in the system this package generalizes from.
package marsh

// Mapper is a runtime node that applies a transform to a value. Mappers are
// referentially transparent and hold no mutable state of their own; any
// state needed across a call (buffers, counters) lives in the caller.
type Mapper interface {
	Apply(value any) (any, error)
}

// MapperFunc adapts a plain function to the Mapper interface.
type MapperFunc func(value any) (any, error)

// Apply implements Mapper.
func (f MapperFunc) Apply(value any) (any, error) { return f(value) }

// NamedValue pairs a struct field's declared name with its mapped value, so
// that a struct composer can assemble an ordered record while individual
// fields elect to be absent.
type NamedValue struct {
	Name    string
	Value   any
	Present bool
}

// absentType is the type of the Absent sentinel: a mapped value of "no value
// here", which Optional treats like nil and StructCompose omits, mirroring vow's FieldValue.MISSING
// default from vow/marsh/impl/any.py.
type absentType struct{}

// Absent is the sentinel value representing a missing optional value.
var Absent = absentType{}

// IsAbsent reports whether v is the Absent sentinel.
func IsAbsent(v any) bool {
	_, ok := v.(absentType)
	return ok
}

// FramedValue is the result of a binary decoder: the decoded value plus a
// view into the remaining, unconsumed input.
type FramedValue[T any] struct {
	Value     T
	Remaining []byte
}
