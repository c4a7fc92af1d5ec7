package marsh

import (
	"encoding/json"
)

// VarintEncodeDescriptor renders a non-negative integer as an unsigned
// LEB128 varint: 7 payload bits per byte, high bit set on every byte but the
// last. Grounds the wire-level integer codec behind BinaryIntoInt in
// vow/marsh/impl/binary_into.py.
type VarintEncodeDescriptor struct{ leaf }

// VarintEncode returns a descriptor that renders an integer as a varint.
func VarintEncode() *VarintEncodeDescriptor { return &VarintEncodeDescriptor{} }

func (d *VarintEncodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		n, err := toUint64(v)
		if err != nil {
			return nil, err
		}
		return encodeVarint(n), nil
	}), nil
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case int:
		if x < 0 {
			return 0, NewError(ReasonNotInt, v, nil)
		}
		return uint64(x), nil
	case int64:
		if x < 0 {
			return 0, NewError(ReasonNotInt, v, nil)
		}
		return uint64(x), nil
	case float64:
		if x < 0 {
			return 0, NewError(ReasonNotInt, v, nil)
		}
		return uint64(x), nil
	default:
		return 0, NewError(ReasonNotInt, v, nil)
	}
}

// EncodeVarint renders n as an unsigned LEB128 varint. Exported so wire.Reader
// and wire.Writer can frame the byte stream without going through the
// Descriptor/Mapper machinery for a hot-path, allocation-light operation.
func EncodeVarint(n uint64) []byte { return encodeVarint(n) }

// DecodeVarint parses a leading varint off buf, returning the value and how
// many bytes it consumed. A buffer too short to contain a complete varint
// returns a *Error with ReasonBufferNeeded, the same non-terminal control
// signal VarintDecodeDescriptor's Mapper produces.
func DecodeVarint(buf []byte) (uint64, int, error) { return decodeVarint(buf) }

func encodeVarint(n uint64) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		out = append(out, b)
		break
	}
	return out
}

// VarintDecodeDescriptor reads a leading unsigned LEB128 varint off a []byte
// buffer and returns a FramedValue[uint64] pairing the decoded value with
// the unconsumed remainder. An incomplete varint (buffer ends mid-sequence,
// every seen byte having its continuation bit set) yields ReasonBufferNeeded,
// the non-terminal control signal wire.Reader watches for to ask for more
// bytes rather than failing the connection. Grounds BinaryFromInt in
// vow/marsh/impl/binary_from.py.
type VarintDecodeDescriptor struct{ leaf }

// VarintDecode returns a descriptor that parses a leading varint.
func VarintDecode() *VarintDecodeDescriptor { return &VarintDecodeDescriptor{} }

func (d *VarintDecodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		buf, ok := v.([]byte)
		if !ok {
			return nil, NewError(ReasonNotBytes, v, nil)
		}
		n, consumed, err := decodeVarint(buf)
		if err != nil {
			return nil, err
		}
		return FramedValue[uint64]{Value: n, Remaining: buf[consumed:]}, nil
	}), nil
}

// decodeVarint reports how many bytes of buf made up the varint. It returns
// ReasonBufferNeeded, not a hard failure, when buf is too short to contain a
// complete varint so the caller can retry once more bytes have arrived.
func decodeVarint(buf []byte) (uint64, int, error) {
	var value uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, NewError(ReasonUnmappable, buf, nil)
		}
	}
	return 0, 0, NewError(ReasonBufferNeeded, buf, nil)
}

// LengthPrefixedBytesEncodeDescriptor prefixes a []byte payload with its
// length, varint-encoded: the Frame wire form of every packet.
type LengthPrefixedBytesEncodeDescriptor struct{ leaf }

// LengthPrefixedBytesEncode returns a descriptor rendering varint(len) ++ body.
func LengthPrefixedBytesEncode() *LengthPrefixedBytesEncodeDescriptor {
	return &LengthPrefixedBytesEncodeDescriptor{}
}

func (d *LengthPrefixedBytesEncodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		body, ok := v.([]byte)
		if !ok {
			return nil, NewError(ReasonNotBytes, v, nil)
		}
		out := make([]byte, 0, len(body)+5)
		out = append(out, encodeVarint(uint64(len(body)))...)
		out = append(out, body...)
		return out, nil
	}), nil
}

// LengthPrefixedBytesDecodeDescriptor reads a varint length prefix followed
// by that many body bytes, returning a FramedValue[[]byte] of the body plus
// whatever trailing bytes remain unconsumed. If the prefix declares more
// bytes than are currently buffered, this yields ReasonBufferNeeded so the
// frame reader can wait for the rest of the frame instead of failing.
type LengthPrefixedBytesDecodeDescriptor struct{ leaf }

// LengthPrefixedBytesDecode returns a descriptor parsing varint(len) ++ body.
func LengthPrefixedBytesDecode() *LengthPrefixedBytesDecodeDescriptor {
	return &LengthPrefixedBytesDecodeDescriptor{}
}

func (d *LengthPrefixedBytesDecodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		buf, ok := v.([]byte)
		if !ok {
			return nil, NewError(ReasonNotBytes, v, nil)
		}
		size, consumed, err := decodeVarint(buf)
		if err != nil {
			return nil, err
		}
		rest := buf[consumed:]
		if uint64(len(rest)) < size {
			return nil, NewError(ReasonBufferNeeded, buf, nil)
		}
		body := rest[:size]
		return FramedValue[[]byte]{Value: body, Remaining: rest[size:]}, nil
	}), nil
}

// JSONEncodeBytesDescriptor marshals a value (typically the []NamedValue or
// map[string]any a struct/collection descriptor already produced) to its
// canonical JSON bytes.
type JSONEncodeBytesDescriptor struct{ leaf }

// JSONEncodeBytes returns a descriptor that marshals a value to JSON bytes.
func JSONEncodeBytes() *JSONEncodeBytesDescriptor { return &JSONEncodeBytesDescriptor{} }

func (d *JSONEncodeBytesDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		obj := namedValuesToMap(v)
		out, err := json.Marshal(obj)
		if err != nil {
			return nil, NewError(ReasonJSON, v, err)
		}
		return out, nil
	}), nil
}

func namedValuesToMap(v any) any {
	nvs, ok := v.([]NamedValue)
	if !ok {
		return v
	}
	m := make(map[string]any, len(nvs))
	for _, nv := range nvs {
		if nv.Present {
			m[nv.Name] = nv.Value
		}
	}
	return m
}

// JSONDecodeBytesDescriptor unmarshals JSON bytes into the generic tree model
// (map[string]any / []any / string / float64 / bool / nil) that the rest of
// the marsh graph operates on, rejecting trailing garbage after the value.
type JSONDecodeBytesDescriptor struct{ leaf }

// JSONDecodeBytes returns a descriptor that parses JSON bytes into Go values.
func JSONDecodeBytes() *JSONDecodeBytesDescriptor { return &JSONDecodeBytesDescriptor{} }

func (d *JSONDecodeBytesDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		buf, ok := v.([]byte)
		if !ok {
			return nil, NewError(ReasonNotBytes, v, nil)
		}
		var out any
		if err := json.Unmarshal(buf, &out); err != nil {
			return nil, NewError(ReasonJSON, v, err)
		}
		return out, nil
	}), nil
}

// ConcatDescriptor applies each child descriptor to the same input and
// concatenates their []byte results in order, used to assemble a frame's
// length prefix and body into one write.
type ConcatDescriptor struct {
	Parts []Descriptor
}

// Concat returns a descriptor that joins the []byte output of each part.
func Concat(parts ...Descriptor) *ConcatDescriptor {
	return &ConcatDescriptor{Parts: parts}
}

func (d *ConcatDescriptor) Dependencies() map[string]Descriptor {
	out := make(map[string]Descriptor, len(d.Parts))
	for i, p := range d.Parts {
		out[concatKey(i)] = p
	}
	return out
}

func (d *ConcatDescriptor) Build(children map[string]Mapper) (Mapper, error) {
	n := len(d.Parts)
	return MapperFunc(func(v any) (any, error) {
		var out []byte
		for i := 0; i < n; i++ {
			part, err := children[concatKey(i)].Apply(v)
			if err != nil {
				return nil, err
			}
			b, ok := part.([]byte)
			if !ok {
				return nil, NewError(ReasonNotBytes, part, nil)
			}
			out = append(out, b...)
		}
		return out, nil
	}), nil
}

func concatKey(i int) string {
	return "part" + string(rune('0'+i))
}
