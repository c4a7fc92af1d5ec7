package marsh

// EnumEncodeDescriptor maps an enum variant to its declared scalar value.
// Grounds AnyIntoEnum from vow/marsh/impl/any_into.py.
type EnumEncodeDescriptor struct {
	leaf
	// Table maps each declared variant to the scalar written to the wire.
	Table map[any]any
}

// EnumEncode returns a descriptor that looks up v in table.
func EnumEncode(table map[any]any) *EnumEncodeDescriptor {
	return &EnumEncodeDescriptor{Table: table}
}

func (d *EnumEncodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	table := d.Table
	return MapperFunc(func(v any) (any, error) {
		scalar, ok := table[v]
		if !ok {
			return nil, NewError(ReasonInvalidEnumKey, v, nil)
		}
		return scalar, nil
	}), nil
}

// EnumDecodeDescriptor maps a scalar wire value back to its declared enum
// variant; an unrecognized scalar fails ReasonInvalidEnumKey. Grounds
// AnyFromEnum from vow/marsh/impl/any_from.py.
type EnumDecodeDescriptor struct {
	leaf
	// Table maps each scalar on the wire to its variant value.
	Table map[any]any
}

// EnumDecode returns a descriptor that looks up the wire scalar in table.
func EnumDecode(table map[any]any) *EnumDecodeDescriptor {
	return &EnumDecodeDescriptor{Table: table}
}

func (d *EnumDecodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	table := d.Table
	return MapperFunc(func(v any) (any, error) {
		variant, ok := table[v]
		if !ok {
			return nil, NewError(ReasonInvalidEnumKey, v, nil)
		}
		return variant, nil
	}), nil
}
