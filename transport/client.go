package transport

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vowrpc/vow/muxstream"
	"github.com/vowrpc/vow/session"
	"github.com/vowrpc/vow/wire"
)

// Client drives the client side of the handshake and exposes Call/OpenStream
// for application code once the session reaches DataPhase.
type Client struct {
	conn    *Connection
	sess    *session.ClientSession
	table   *muxstream.Table
	log     *logrus.Logger
	nextID  atomic.Int64
	cancel  context.CancelFunc
	ctx     context.Context
	running chan struct{}
}

// Dial performs the handshake over stream, returning a Client ready for
// Call/OpenStream once the server accepts. Allocation of client-side
// stream-ids is strictly monotonic starting at "0", per §4.7.
func Dial(ctx context.Context, stream ByteStream, svc wire.Service, headers []wire.Header, log *logrus.Logger) (*Client, error) {
	log = logOrDefault(log)
	conn := NewConnection(stream, log)
	sess := session.NewClientSession(log)
	table := muxstream.NewTable()

	ctx, cancel := context.WithCancel(ctx)
	c := &Client{conn: conn, sess: sess, table: table, log: log, cancel: cancel, ctx: ctx, running: make(chan struct{})}

	go conn.RunSender(ctx)

	accepted := make(chan error, 1)
	go func() {
		dispatch := func(p wire.Packet) error {
			if sess.Phase() != session.DataPhase {
				err := sess.HandleReply(p)
				accepted <- err
				return err
			}
			return table.Route(ctx, p, nil)
		}
		close(c.running)
		conn.RunReceiver(ctx, dispatch)
	}()
	<-c.running

	for _, p := range sess.Open(svc, headers) {
		if err := conn.Send(ctx, p); err != nil {
			cancel()
			return nil, err
		}
	}

	select {
	case err := <-accepted:
		if err != nil {
			cancel()
			return nil, err
		}
		return c, nil
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case <-conn.Done():
		cancel()
		return nil, conn.Err()
	}
}

// Close tears the connection down.
func (c *Client) Close() {
	c.cancel()
	c.conn.Close(nil)
}

func (c *Client) allocStreamID() string {
	return strconv.FormatInt(c.nextID.Add(1)-1, 10)
}

// Call issues a unary Request and waits for the terminal End/Error reply.
func (c *Client) Call(ctx context.Context, method string, body any) (any, error) {
	ctx, span := startCallSpan(ctx, c.conn.ID, method)
	defer span.End()

	id := c.allocStreamID()
	s, err := c.table.Open(muxstream.StreamID(id), 0)
	if err != nil {
		return nil, err
	}
	defer c.table.Close(muxstream.StreamID(id))

	if err := c.conn.Send(ctx, wire.Packet{Stream: &id, Type: wire.TagRequest, Body: wire.Request{Method: method, Body: body}}); err != nil {
		return nil, err
	}

	p, err := s.Recv(ctx)
	if err != nil {
		return nil, err
	}
	switch b := p.Body.(type) {
	case *wire.End:
		return b.Body, nil
	case *wire.PacketError:
		var errBody any
		if b.Body.Present {
			errBody = b.Body.Value
		}
		return nil, fmt.Errorf("transport: call %q failed (%s): %v", method, b.Type, errBody)
	default:
		return nil, fmt.Errorf("transport: unexpected terminal packet %v for unary call", p.Type)
	}
}

// StreamCall is the handle of one open streaming call, returned by
// OpenStream. Recv yields each Step body in order until End/Error; Ack
// acknowledges consumed items, advancing the flow-control window and
// optionally widening it; Cancel asks the server to stop.
type StreamCall struct {
	client *Client
	id     string
	stream *muxstream.Stream
	span   trace.Span
}

// OpenStream sends Start and returns a handle for receiving Steps and Ack'ing
// them.
func (c *Client) OpenStream(ctx context.Context, method string, buffer int, body any) (*StreamCall, error) {
	_, span := startCallSpan(ctx, c.conn.ID, method)

	id := c.allocStreamID()
	s, err := c.table.Open(muxstream.StreamID(id), buffer)
	if err != nil {
		span.End()
		return nil, err
	}
	if err := c.conn.Send(ctx, wire.Packet{Stream: &id, Type: wire.TagStart, Body: wire.Start{Method: method, Buffer: buffer, Body: body}}); err != nil {
		c.table.Close(muxstream.StreamID(id))
		span.End()
		return nil, err
	}
	return &StreamCall{client: c, id: id, stream: s, span: span}, nil
}

// Recv returns the next Step's body with done false. On End it returns
// done true and End's cancelled flag, with a nil error; on a terminal Error
// packet it returns done true and an error.
func (sc *StreamCall) Recv(ctx context.Context) (item any, cancelled bool, done bool, err error) {
	p, err := sc.stream.Recv(ctx)
	if err != nil {
		return nil, false, false, err
	}
	switch b := p.Body.(type) {
	case *wire.Step:
		if !sc.stream.ObserveIndex(b.Index) {
			return nil, false, false, fmt.Errorf("transport: non-monotonic step index %d on stream %s", b.Index, sc.id)
		}
		return b.Body, false, false, nil
	case *wire.End:
		sc.client.table.Close(muxstream.StreamID(sc.id))
		sc.span.End()
		return nil, b.Cancelled, true, nil
	case *wire.PacketError:
		sc.client.table.Close(muxstream.StreamID(sc.id))
		sc.span.End()
		var errBody any
		if b.Body.Present {
			errBody = b.Body.Value
		}
		return nil, false, true, fmt.Errorf("transport: stream %q failed (%s): %v", sc.id, b.Type, errBody)
	default:
		return nil, false, false, fmt.Errorf("transport: unexpected packet %v on stream %s", p.Type, sc.id)
	}
}

// Ack sends StepAck acknowledging through index, optionally widening the
// advertised buffer window.
func (sc *StreamCall) Ack(ctx context.Context, index int, buffer *int) error {
	ack := wire.StepAck{Index: index}
	if buffer != nil {
		ack.Buffer = wire.Some(*buffer)
	}
	return sc.client.conn.Send(ctx, wire.Packet{Stream: &sc.id, Type: wire.TagStepAck, Body: ack})
}

// Cancel asks the server to stop producing Steps for this stream.
func (sc *StreamCall) Cancel(ctx context.Context, reason string) error {
	c := wire.Cancel{}
	if reason != "" {
		c.Reason = wire.Some(reason)
	}
	return sc.client.conn.Send(ctx, wire.Packet{Stream: &sc.id, Type: wire.TagCancel, Body: c})
}
