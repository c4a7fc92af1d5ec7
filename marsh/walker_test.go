package marsh

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int
	Y int
}

type widget struct {
	Name  string
	Point point
	Tags  []string
	Note  *string
}

func TestWalkerStructRoundTrip(t *testing.T) {
	registry := NewRegistry()
	w := NewWalker(registry)

	encDesc, err := w.Walk(reflect.TypeOf(widget{}), JSONEncode)
	require.NoError(t, err)
	decDesc, err := w.Walk(reflect.TypeOf(widget{}), JSONDecode)
	require.NoError(t, err)

	linker := NewLinker(registry)
	enc, err := linker.Link(encDesc)
	require.NoError(t, err)
	dec, err := linker.Link(decDesc)
	require.NoError(t, err)

	note := "hi"
	in := widget{Name: "gizmo", Point: point{X: 1, Y: 2}, Tags: []string{"a", "b"}, Note: &note}

	encoded, err := enc.Apply(in)
	require.NoError(t, err)
	nvs, ok := encoded.([]NamedValue)
	require.True(t, ok)

	asMap := make(map[string]any, len(nvs))
	for _, nv := range nvs {
		asMap[nv.Name] = nv.Value
	}
	assert.Equal(t, "gizmo", asMap["Name"])

	decoded, err := dec.Apply(asMap)
	require.NoError(t, err)
	out := decoded.(*widget)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Tags, out.Tags)
}

func TestWalkerStructDecodeMissingFieldPath(t *testing.T) {
	registry := NewRegistry()
	w := NewWalker(registry)
	decDesc, err := w.Walk(reflect.TypeOf(widget{}), JSONDecode)
	require.NoError(t, err)

	linker := NewLinker(registry)
	dec, err := linker.Link(decDesc)
	require.NoError(t, err)

	_, err = dec.Apply(map[string]any{"Name": "gizmo"})
	require.Error(t, err)

	var marshErr *Error
	require.ErrorAs(t, err, &marshErr)
	assert.Equal(t, ReasonKeyMissing, marshErr.Reason)
	assert.Equal(t, []string{"Point"}, marshErr.Path)
}

type linkNode struct {
	Value int
	Next  *linkNode
}

// TestWalkerRecursiveStructRoundTrip exercises forwardDescriptor (a struct
// field referring back to its own type) and the Linker's back-edge closing:
// linkNode.Next is a *linkNode, so walking it revisits linkNode mid-walk,
// before its real descriptor exists.
func TestWalkerRecursiveStructRoundTrip(t *testing.T) {
	registry := NewRegistry()
	w := NewWalker(registry)

	encDesc, err := w.Walk(reflect.TypeOf(linkNode{}), JSONEncode)
	require.NoError(t, err)
	decDesc, err := w.Walk(reflect.TypeOf(linkNode{}), JSONDecode)
	require.NoError(t, err)

	linker := NewLinker(registry)
	enc, err := linker.Link(encDesc)
	require.NoError(t, err)
	dec, err := linker.Link(decDesc)
	require.NoError(t, err)

	in := linkNode{Value: 1, Next: &linkNode{Value: 2, Next: nil}}

	encoded, err := enc.Apply(in)
	require.NoError(t, err)
	nvs, ok := encoded.([]NamedValue)
	require.True(t, ok)
	outer := nvsToMap(nvs)
	assert.Equal(t, 1, outer["Value"])

	innerNVs, ok := outer["Next"].([]NamedValue)
	require.True(t, ok)
	inner := nvsToMap(innerNVs)
	assert.Equal(t, 2, inner["Value"])

	decoded, err := dec.Apply(map[string]any{
		"Value": 1,
		"Next": map[string]any{
			"Value": 2,
		},
	})
	require.NoError(t, err)
	out := decoded.(*linkNode)
	assert.Equal(t, 1, out.Value)
	require.NotNil(t, out.Next)
	assert.Equal(t, 2, out.Next.Value)
	assert.Nil(t, out.Next.Next)
}

func nvsToMap(nvs []NamedValue) map[string]any {
	out := make(map[string]any, len(nvs))
	for _, nv := range nvs {
		out[nv.Name] = nv.Value
	}
	return out
}

func TestWalkerDeterministicConstruction(t *testing.T) {
	registry := NewRegistry()
	w := NewWalker(registry)
	d1, err := w.Walk(reflect.TypeOf(widget{}), JSONEncode)
	require.NoError(t, err)
	d2, err := w.Walk(reflect.TypeOf(widget{}), JSONEncode)
	require.NoError(t, err)
	assert.Same(t, d1, d2)
}
