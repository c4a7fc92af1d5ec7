package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vowrpc/vow/wire"
)

type fakeServices map[string]bool

func (f fakeServices) Lookup(name string) bool { return f[name] }

func TestServerSessionAccept(t *testing.T) {
	s := NewServerSession(fakeServices{"rate_limiter": true}, "0.1.0", nil)

	replies, err := s.Handle(wire.Packet{Type: wire.TagService, Body: &wire.Service{Name: "rate_limiter", Version: "0.1.0", Proto: "0.1.0"}})
	require.NoError(t, err)
	assert.Empty(t, replies)
	assert.Equal(t, AwaitHeadersOrBegin, s.Phase())

	replies, err = s.Handle(wire.Packet{Type: wire.TagHeader, Body: &wire.Header{Name: "authorization", Value: wire.Some[any]("Bearer 123")}})
	require.NoError(t, err)
	assert.Empty(t, replies)

	replies, err = s.Handle(wire.Packet{Type: wire.TagBegin, Body: &wire.Begin{}})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, wire.TagAccepted, replies[0].Type)
	assert.Equal(t, DataPhase, s.Phase())

	auth, ok := s.Headers().Authorization()
	require.True(t, ok)
	assert.Equal(t, "Bearer 123", auth)
}

func TestServerSessionDeny(t *testing.T) {
	s := NewServerSession(fakeServices{"rate_limiter": true}, "0.1.0", nil)

	_, err := s.Handle(wire.Packet{Type: wire.TagService, Body: &wire.Service{Name: "unknown", Version: "0.1.0", Proto: "0.1.0"}})
	require.NoError(t, err)
	_, err = s.Handle(wire.Packet{Type: wire.TagBegin, Body: &wire.Begin{}})
	require.NoError(t, err)

	replies, err := s.Handle(wire.Packet{Type: wire.TagBegin, Body: &wire.Begin{}})
	_ = replies
	assert.Error(t, err)
}

func TestServerSessionDenyUnknownService(t *testing.T) {
	s := NewServerSession(fakeServices{"rate_limiter": true}, "0.1.0", nil)

	_, err := s.Handle(wire.Packet{Type: wire.TagService, Body: &wire.Service{Name: "unknown", Version: "0.1.0", Proto: "0.1.0"}})
	require.NoError(t, err)

	replies, err := s.Handle(wire.Packet{Type: wire.TagBegin, Body: &wire.Begin{}})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, wire.TagDenied, replies[0].Type)
	denied, ok := replies[0].Body.(wire.Denied)
	require.True(t, ok)
	assert.Equal(t, "service unknown", denied.Reason)
	assert.Equal(t, Closed, s.Phase())
}

func TestServerSessionDenyProtoMismatch(t *testing.T) {
	s := NewServerSession(fakeServices{"rate_limiter": true}, "0.2.0", nil)

	_, err := s.Handle(wire.Packet{Type: wire.TagService, Body: &wire.Service{Name: "rate_limiter", Version: "0.1.0", Proto: "0.1.0"}})
	require.NoError(t, err)

	replies, err := s.Handle(wire.Packet{Type: wire.TagBegin, Body: &wire.Begin{}})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	denied := replies[0].Body.(wire.Denied)
	assert.Equal(t, "proto", denied.Reason)
}

func TestServerSessionStreamBeforeAcceptIsProtocolError(t *testing.T) {
	s := NewServerSession(fakeServices{"rate_limiter": true}, "0.1.0", nil)
	stream := "0"
	_, err := s.Handle(wire.Packet{Stream: &stream, Type: wire.TagService, Body: &wire.Service{}})
	require.Error(t, err)
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodeStreamNull, pe.Code)
}

func TestClientSessionAcceptFlow(t *testing.T) {
	c := NewClientSession(nil)
	packets := c.Open(wire.Service{Name: "rate_limiter", Version: "0.1.0", Proto: "0.1.0"}, []wire.Header{
		{Name: "authorization", Value: wire.Some[any]("Bearer 123")},
	})
	require.Len(t, packets, 3)
	assert.Equal(t, wire.TagService, packets[0].Type)
	assert.Equal(t, wire.TagHeader, packets[1].Type)
	assert.Equal(t, wire.TagBegin, packets[2].Type)
	assert.Equal(t, ServiceDecision, c.Phase())

	err := c.HandleReply(wire.Packet{Type: wire.TagAccepted, Body: &wire.Accepted{}})
	require.NoError(t, err)
	assert.Equal(t, DataPhase, c.Phase())
}

func TestClientSessionDeniedAborts(t *testing.T) {
	c := NewClientSession(nil)
	c.Open(wire.Service{Name: "unknown"}, nil)

	err := c.HandleReply(wire.Packet{Type: wire.TagDenied, Body: &wire.Denied{Reason: "service unknown"}})
	require.ErrorIs(t, err, ErrConnectionAborted)
	assert.Equal(t, Closed, c.Phase())
}
