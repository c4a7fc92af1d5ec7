package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vowrpc/vow/wire"
)

type fakeServices map[string]bool

func (f fakeServices) Lookup(name string) bool { return f[name] }

type echoHandler struct{}

func (echoHandler) Unary(ctx context.Context, method string, body any) (any, error) {
	return body, nil
}

func (echoHandler) Stream(ctx context.Context, method string, body any, emit func(item any) error) error {
	for i := 0; i < 5; i++ {
		if err := emit(i); err != nil {
			return nil
		}
	}
	return nil
}

func dialPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	return a, b
}

func TestUnaryEcho(t *testing.T) {
	serverConn, clientConn := dialPair(t)
	defer serverConn.Close()
	defer clientConn.Close()

	srv := NewServer(fakeServices{"rate_limiter": true}, "0.1.0", echoHandler{}, nil)
	go func() { _ = srv.Serve(context.Background(), serverConn) }()

	client, err := Dial(context.Background(), clientConn, wire.Service{Name: "rate_limiter", Version: "0.1.0", Proto: "0.1.0"}, nil, nil)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := client.Call(ctx, "get", map[string]any{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "b"}, result)
}

func TestServiceDenied(t *testing.T) {
	serverConn, clientConn := dialPair(t)
	defer serverConn.Close()
	defer clientConn.Close()

	srv := NewServer(fakeServices{"rate_limiter": true}, "0.1.0", echoHandler{}, nil)
	go func() { _ = srv.Serve(context.Background(), serverConn) }()

	_, err := Dial(context.Background(), clientConn, wire.Service{Name: "unknown", Version: "0.1.0", Proto: "0.1.0"}, nil, nil)
	assert.Error(t, err)
}

func TestStreamingWithFlowControl(t *testing.T) {
	serverConn, clientConn := dialPair(t)
	defer serverConn.Close()
	defer clientConn.Close()

	srv := NewServer(fakeServices{"rate_limiter": true}, "0.1.0", echoHandler{}, nil)
	go func() { _ = srv.Serve(context.Background(), serverConn) }()

	client, err := Dial(context.Background(), clientConn, wire.Service{Name: "rate_limiter", Version: "0.1.0", Proto: "0.1.0"}, nil, nil)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sc, err := client.OpenStream(ctx, "count", 2, nil)
	require.NoError(t, err)

	var items []any
	for {
		item, cancelled, done, err := sc.Recv(ctx)
		require.NoError(t, err)
		assert.False(t, cancelled)
		if done {
			break
		}
		items = append(items, item)
		require.NoError(t, sc.Ack(ctx, len(items)-1, nil))
	}
	require.Len(t, items, 5)
	for i, item := range items {
		assert.EqualValues(t, i, item)
	}
}
