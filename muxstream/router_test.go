package muxstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vowrpc/vow/session"
	"github.com/vowrpc/vow/wire"
)

func strp(s string) *string { return &s }

func TestRouteOpensStreamOnRequest(t *testing.T) {
	tbl := NewTable()
	var opened *Stream
	err := tbl.Route(context.Background(), wire.Packet{
		Stream: strp("0"),
		Type:   wire.TagRequest,
		Body:   &wire.Request{Method: "get", Body: map[string]any{"a": "b"}},
	}, func(ctx context.Context, s *Stream, opening wire.Packet) {
		opened = s
	})
	require.NoError(t, err)
	require.NotNil(t, opened)
	assert.Equal(t, StreamID("0"), opened.ID)
	assert.Equal(t, 1, tbl.Len())
}

func TestRouteDuplicateOpenIsStreamUsed(t *testing.T) {
	tbl := NewTable()
	noop := func(ctx context.Context, s *Stream, opening wire.Packet) {}
	req := wire.Packet{Stream: strp("0"), Type: wire.TagRequest, Body: &wire.Request{Method: "get"}}

	require.NoError(t, tbl.Route(context.Background(), req, noop))
	err := tbl.Route(context.Background(), req, noop)
	require.Error(t, err)
	var pe *session.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, session.CodeStreamUsed, pe.Code)
}

func TestRouteUnknownStreamIsStreamUnk(t *testing.T) {
	tbl := NewTable()
	err := tbl.Route(context.Background(), wire.Packet{
		Stream: strp("7"),
		Type:   wire.TagStepAck,
		Body:   &wire.StepAck{Index: 0},
	}, nil)
	require.Error(t, err)
	var pe *session.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, session.CodeStreamUnk, pe.Code)
}

func TestRouteNullStreamIsStreamNull(t *testing.T) {
	tbl := NewTable()
	err := tbl.Route(context.Background(), wire.Packet{Type: wire.TagStep, Body: &wire.Step{Index: 0}}, nil)
	require.Error(t, err)
	var pe *session.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, session.CodeStreamNull, pe.Code)
}

func TestRouteTerminatesStreamOnEnd(t *testing.T) {
	tbl := NewTable()
	noop := func(ctx context.Context, s *Stream, opening wire.Packet) {}
	require.NoError(t, tbl.Route(context.Background(), wire.Packet{Stream: strp("0"), Type: wire.TagRequest, Body: &wire.Request{}}, noop))

	s, _ := tbl.Lookup("0")
	go func() { _, _ = s.Recv(context.Background()) }()

	require.NoError(t, tbl.Route(context.Background(), wire.Packet{Stream: strp("0"), Type: wire.TagEnd, Body: &wire.End{}}, nil))
	assert.Equal(t, 0, tbl.Len())

	err := tbl.Route(context.Background(), wire.Packet{Stream: strp("0"), Type: wire.TagStep, Body: &wire.Step{Index: 0}}, nil)
	require.Error(t, err)
}

func TestRouteCancelAfterCloseIsIgnored(t *testing.T) {
	tbl := NewTable()
	err := tbl.Route(context.Background(), wire.Packet{Stream: strp("9"), Type: wire.TagCancel, Body: &wire.Cancel{}}, nil)
	assert.NoError(t, err)
}

func TestFlowControlBufferWindow(t *testing.T) {
	tbl := NewTable()
	var opened *Stream
	require.NoError(t, tbl.Route(context.Background(), wire.Packet{
		Stream: strp("1"),
		Type:   wire.TagStart,
		Body:   &wire.Start{Buffer: 2},
	}, func(ctx context.Context, s *Stream, opening wire.Packet) { opened = s }))

	assert.True(t, opened.CanSendStep())
	assert.Equal(t, 0, opened.NextStepIndex())
	assert.True(t, opened.CanSendStep())
	assert.Equal(t, 1, opened.NextStepIndex())
	assert.False(t, opened.CanSendStep())

	buf := 3
	opened.Ack(0, &buf)
	assert.True(t, opened.CanSendStep())
}

func TestStepIndexMonotonic(t *testing.T) {
	s := newStream("0", 10, 4)
	assert.True(t, s.ObserveIndex(0))
	assert.True(t, s.ObserveIndex(1))
	assert.False(t, s.ObserveIndex(5))
}
