package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecEncodeDecodePacket(t *testing.T) {
	c := NewCodec()
	p := Packet{
		Stream: nil,
		Type:   TagService,
		Body:   Service{Name: "rate_limiter", Version: "0.1.0", Proto: "0.1.0"},
	}

	framed, err := c.EncodePacket(p)
	require.NoError(t, err)

	c.Feed(framed)
	got, ok, err := c.NextPacket()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TagService, got.Type)
	assert.Nil(t, got.Stream)
	svc, ok := got.Body.(*Service)
	require.True(t, ok)
	assert.Equal(t, "rate_limiter", svc.Name)
}

func TestCodecServiceAcceptWireShape(t *testing.T) {
	c := NewCodec()
	p := Packet{
		Type: TagService,
		Body: Service{Name: "rate_limiter", Version: "0.1.0", Proto: "0.1.0"},
	}
	body, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service","stream":null,"body":{"name":"rate_limiter","version":"0.1.0","proto":"0.1.0"}}`, string(body))
	_ = c
}

func TestCodecUnknownTypeIsProtocolError(t *testing.T) {
	c := NewCodec()
	w := NewWriter()
	framed := w.Encode([]byte(`{"type":"bogus","stream":null,"body":{}}`))
	c.Feed(framed)
	_, ok, err := c.NextPacket()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCodecStreamDataPhase(t *testing.T) {
	c := NewCodec()
	stream := "0"
	p := Packet{
		Stream: &stream,
		Type:   TagRequest,
		Body:   Request{Method: "get", Body: map[string]any{"a": "b"}},
	}
	framed, err := c.EncodePacket(p)
	require.NoError(t, err)
	c.Feed(framed)
	got, ok, err := c.NextPacket()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, got.Stream)
	assert.Equal(t, "0", *got.Stream)
	req, ok := got.Body.(*Request)
	require.True(t, ok)
	assert.Equal(t, "get", req.Method)
}
