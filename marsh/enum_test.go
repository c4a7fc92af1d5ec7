package marsh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type color int

const (
	colorRed color = iota
	colorGreen
	colorBlue
)

func TestEnumRoundTrip(t *testing.T) {
	encodeTable := map[any]any{
		colorRed:   "red",
		colorGreen: "green",
		colorBlue:  "blue",
	}
	decodeTable := map[any]any{
		"red":   colorRed,
		"green": colorGreen,
		"blue":  colorBlue,
	}

	enc := buildLeaf(t, EnumEncode(encodeTable))
	dec := buildLeaf(t, EnumDecode(decodeTable))

	out, err := enc.Apply(colorGreen)
	require.NoError(t, err)
	assert.Equal(t, "green", out)

	back, err := dec.Apply(out)
	require.NoError(t, err)
	assert.Equal(t, colorGreen, back)
}

func TestEnumEncodeUnknownVariantFails(t *testing.T) {
	enc := buildLeaf(t, EnumEncode(map[any]any{colorRed: "red"}))
	_, err := enc.Apply(color(99))
	require.Error(t, err)
	var marshErr *Error
	require.ErrorAs(t, err, &marshErr)
	assert.Equal(t, ReasonInvalidEnumKey, marshErr.Reason)
}

func TestEnumDecodeUnknownScalarFails(t *testing.T) {
	dec := buildLeaf(t, EnumDecode(map[any]any{"red": colorRed}))
	_, err := dec.Apply("purple")
	require.Error(t, err)
	var marshErr *Error
	require.ErrorAs(t, err, &marshErr)
	assert.Equal(t, ReasonInvalidEnumKey, marshErr.Reason)
}
