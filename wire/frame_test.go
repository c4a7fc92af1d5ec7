package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	w := NewWriter()
	p := []byte("hello")
	q := []byte("world!!")

	framed := append(w.Encode(p), w.Encode(q)...)

	for prefixLen := 0; prefixLen <= len(framed); prefixLen++ {
		r := NewReader()
		r.Feed(framed[:prefixLen])
		payload, ok, err := r.Next()
		require.NoError(t, err)
		if !ok {
			continue
		}
		assert.Equal(t, p, payload)
	}
}

func TestFrameDecodeBufferNeeded(t *testing.T) {
	w := NewWriter()
	full := w.Encode([]byte("payload"))

	r := NewReader()
	r.Feed(full[:len(full)-2])
	_, ok, err := r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, r.Pending())

	r.Feed(full[len(full)-2:])
	payload, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), payload)
	assert.False(t, r.Pending())
}

func TestFrameDecodeVarintShort(t *testing.T) {
	r := NewReader()
	r.Feed([]byte{0xFF})
	_, ok, err := r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFrameDecodeSequential(t *testing.T) {
	w := NewWriter()
	framed := append(w.Encode([]byte("a")), w.Encode([]byte("bb"))...)

	r := NewReader()
	r.Feed(framed)

	first, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), first)

	second, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("bb"), second)

	_, ok, err = r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
