package marsh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampRoundTrip(t *testing.T) {
	enc := buildLeaf(t, TimestampEncode())
	dec := buildLeaf(t, TimestampDecode())

	in := time.Date(2026, 7, 30, 12, 0, 0, 123000, time.UTC)
	out, err := enc.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, "2026-07-30T12:00:00.000123Z", out)

	back, err := dec.Apply(out)
	require.NoError(t, err)
	assert.True(t, in.Equal(back.(time.Time)))
}

func TestTimestampDecodeAcceptsRFC3339Fallback(t *testing.T) {
	dec := buildLeaf(t, TimestampDecode())
	out, err := dec.Apply("2026-07-30T12:00:00Z")
	require.NoError(t, err)
	assert.True(t, out.(time.Time).Equal(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)))
}

func TestDurationRoundTrip(t *testing.T) {
	enc := buildLeaf(t, DurationEncode())
	dec := buildLeaf(t, DurationDecode())

	out, err := enc.Apply(90 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90.0, out)

	back, err := dec.Apply(out)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, back)
}
