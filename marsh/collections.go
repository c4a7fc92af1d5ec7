package marsh

import (
	"fmt"
	"reflect"
)

// OptionalDescriptor wraps a child mapper so that a nil input value (Go nil,
// or the Absent sentinel) yields nil without invoking the child. Grounds JsonAnyOptional from vow/marsh/impl/json.py.
type OptionalDescriptor struct {
	Child Descriptor
}

// Optional returns a descriptor where none propagates as none.
func Optional(child Descriptor) *OptionalDescriptor {
	return &OptionalDescriptor{Child: child}
}

func (d *OptionalDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"child": d.Child}
}

func (d *OptionalDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		if isNilValue(v) || IsAbsent(v) {
			return nil, nil
		}
		out, err := children["child"].Apply(v)
		return out, wrapPath(err, "$optional")
	}), nil
}

// isNilValue reports whether v is either the untyped nil interface or a
// typed nil (a nil *T, slice, map, chan, func or interface boxed in any) -
// the classic Go gotcha where a nil *T compares unequal to a bare nil
// interface. Struct-pointer fields reach Optional this way via lookupAttr's
// fv.Interface(), so a plain v == nil check misses them and lets a nil
// pointer fall through into the child mapper instead of short-circuiting.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// ListDescriptor applies a child descriptor element-wise over a sequence,
// path-tagging each element with its index. Grounds JsonAnyList.
type ListDescriptor struct {
	Of Descriptor
}

// List returns a descriptor that maps each element of a []any through of.
func List(of Descriptor) *ListDescriptor {
	return &ListDescriptor{Of: of}
}

func (d *ListDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"item": d.Of}
}

func (d *ListDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		seq, err := toSlice(v)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(seq))
		item := children["item"]
		for i, elem := range seq {
			mapped, err := item.Apply(elem)
			if err != nil {
				return nil, wrapPath(err, fmt.Sprintf("[%d]", i))
			}
			out[i] = mapped
		}
		return out, nil
	}), nil
}

func toSlice(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case nil:
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, NewError(ReasonNotInstance, v, nil)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// MapDescriptor applies a key descriptor and a value descriptor over a
// mapping's entries. For the JSON-encode flavor the key mapper must produce
// a string (JSON object keys are always strings). Grounds JsonAnyDict.
type MapDescriptor struct {
	Key   Descriptor
	Value Descriptor
}

// Map returns a descriptor transforming a map[any]any into a map[any]any
// (or map[string]any when Key stringifies, as JSON encoding requires).
func Map(key, value Descriptor) *MapDescriptor {
	return &MapDescriptor{Key: key, Value: value}
}

func (d *MapDescriptor) Dependencies() map[string]Descriptor {
	return map[string]Descriptor{"key": d.Key, "value": d.Value}
}

func (d *MapDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		keyMapper := children["key"]
		valueMapper := children["value"]
		entries, err := toEntries(v)
		if err != nil {
			return nil, err
		}
		outString := make(map[string]any, len(entries))
		outAny := make(map[any]any, len(entries))
		stringKeys := true
		for _, kv := range entries {
			mk, err := keyMapper.Apply(kv.key)
			if err != nil {
				return nil, wrapPath(err, "$key")
			}
			mv, err := valueMapper.Apply(kv.value)
			if err != nil {
				return nil, wrapPath(err, fmt.Sprintf("[%v]", kv.key))
			}
			if sk, ok := mk.(string); ok {
				outString[sk] = mv
			} else {
				stringKeys = false
			}
			outAny[mk] = mv
		}
		if stringKeys {
			return outString, nil
		}
		return outAny, nil
	}), nil
}

type mapEntry struct{ key, value any }

func toEntries(v any) ([]mapEntry, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make([]mapEntry, 0, len(x))
		for k, val := range x {
			out = append(out, mapEntry{key: k, value: val})
		}
		return out, nil
	case map[any]any:
		out := make([]mapEntry, 0, len(x))
		for k, val := range x {
			out = append(out, mapEntry{key: k, value: val})
		}
		return out, nil
	case nil:
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, NewError(ReasonNotInstance, v, nil)
	}
	out := make([]mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out = append(out, mapEntry{key: iter.Key().Interface(), value: iter.Value().Interface()})
	}
	return out, nil
}
