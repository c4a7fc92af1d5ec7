package marsh

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintEncodeBoundaries(t *testing.T) {
	cases := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, encodeVarint(c.n))
	}
}

func TestVarintDecodeBoundaries(t *testing.T) {
	cases := []struct {
		in   []byte
		want uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7F}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0x80, 0x80, 0x01}, 16384},
	}
	linker := NewLinker(NewRegistry())
	dec, err := linker.Link(VarintDecode())
	require.NoError(t, err)
	for _, c := range cases {
		out, err := dec.Apply(append(append([]byte{}, c.in...), 0xFF))
		require.NoError(t, err)
		fv := out.(FramedValue[uint64])
		assert.Equal(t, c.want, fv.Value)
		assert.Equal(t, []byte{0xFF}, fv.Remaining)
	}
}

func TestVarintDecodeBufferNeeded(t *testing.T) {
	linker := NewLinker(NewRegistry())
	dec, err := linker.Link(VarintDecode())
	require.NoError(t, err)

	_, err = dec.Apply([]byte{})
	require.Error(t, err)
	assert.True(t, IsBufferNeeded(err))

	_, err = dec.Apply([]byte{0x80})
	require.Error(t, err)
	assert.True(t, IsBufferNeeded(err))

	_, err = dec.Apply([]byte{0x80, 0x80})
	require.Error(t, err)
	assert.True(t, IsBufferNeeded(err))
}

func TestLengthPrefixedBytesRoundTrip(t *testing.T) {
	linker := NewLinker(NewRegistry())
	enc, err := linker.Link(LengthPrefixedBytesEncode())
	require.NoError(t, err)
	dec, err := linker.Link(LengthPrefixedBytesDecode())
	require.NoError(t, err)

	body := []byte("hello vow")
	wire, err := enc.Apply(body)
	require.NoError(t, err)

	out, err := dec.Apply(append(wire.([]byte), 0xAA, 0xBB))
	require.NoError(t, err)
	fv := out.(FramedValue[[]byte])
	assert.True(t, bytes.Equal(body, fv.Value))
	assert.Equal(t, []byte{0xAA, 0xBB}, fv.Remaining)
}

func TestLengthPrefixedBytesDecodeBufferNeeded(t *testing.T) {
	linker := NewLinker(NewRegistry())
	dec, err := linker.Link(LengthPrefixedBytesDecode())
	require.NoError(t, err)

	wire := append(encodeVarint(10), []byte("short")...)
	_, err = dec.Apply(wire)
	require.Error(t, err)
	assert.True(t, IsBufferNeeded(err))
}
