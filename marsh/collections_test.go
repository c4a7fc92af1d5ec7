package marsh

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLeaf(t *testing.T, d Descriptor) Mapper {
	t.Helper()
	children := map[string]Mapper{}
	for name, dep := range d.Dependencies() {
		children[name] = buildLeaf(t, dep)
	}
	m, err := d.Build(children)
	require.NoError(t, err)
	return m
}

func TestOptionalPropagatesNil(t *testing.T) {
	m := buildLeaf(t, Optional(Identity()))
	out, err := m.Apply(nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = m.Apply("x")
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestListMapsElementwiseAndTagsPath(t *testing.T) {
	m := buildLeaf(t, List(Coerce(reflect.TypeOf(0))))
	out, err := m.Apply([]any{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, out)

	_, err = m.Apply([]any{1, "oops", 3})
	require.Error(t, err)
	var marshErr *Error
	require.ErrorAs(t, err, &marshErr)
	assert.Equal(t, []string{"[1]"}, marshErr.Path)
}

func TestMapAppliesKeyAndValueMappers(t *testing.T) {
	m := buildLeaf(t, Map(Identity(), Identity()))
	out, err := m.Apply(map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	asMap, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, asMap["a"])
	assert.Equal(t, 2, asMap["b"])
}
