package marsh

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var intType = reflect.TypeOf(0)

// discKeyDescriptor reads the "type" entry of a map[string]any, the same
// shape wire.Packet's hand-written dispatch reads "type" off of.
type discKeyDescriptor struct{ leaf }

func (discKeyDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, NewError(ReasonInvalidObj, v, nil)
		}
		return m["type"], nil
	}), nil
}

func TestDiscriminatorDispatchesByMappedKey(t *testing.T) {
	d := Discriminator(
		discKeyDescriptor{},
		Identity(),
		map[string]Descriptor{
			"int":    Attr("value", Coerce(intType)),
			"string": Attr("value", Identity()),
		},
	)
	m := buildLeaf(t, d)

	out, err := m.Apply(map[string]any{"type": "int", "value": "42"})
	require.NoError(t, err)
	assert.Equal(t, 42, out)

	out, err = m.Apply(map[string]any{"type": "string", "value": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestDiscriminatorUnknownKeyFails(t *testing.T) {
	d := Discriminator(
		discKeyDescriptor{},
		Identity(),
		map[string]Descriptor{"int": Identity()},
	)
	m := buildLeaf(t, d)

	_, err := m.Apply(map[string]any{"type": "bogus"})
	require.Error(t, err)
	var marshErr *Error
	require.ErrorAs(t, err, &marshErr)
	assert.Equal(t, ReasonKeyMissing, marshErr.Reason)
}
