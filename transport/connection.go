// Package transport wires the mapping-engine-free pieces of §5 together: a
// Connection owns a frame reader/writer pair, an outbound mailbox, the
// stream table, and the two background tasks (sender, receiver) that the
// session and stream multiplexer packages are driven by. It is the layer
// that binds wire/session/muxstream to an actual byte stream, the
// counterpart of pipe.go's Pipe binding vertices to an *fiber.App listener.
package transport

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vowrpc/vow/wire"
)

// ByteStream is the duplex byte stream a Connection reads frames from and
// writes frames to: a websocket connection, a net.Conn, or (in tests) an
// in-memory pipe. Read must return ErrConnectionAborted-worthy behavior the
// same way net.Conn does: io.EOF on a clean close.
type ByteStream interface {
	io.Reader
	io.Writer
	io.Closer
}

// Connection owns exactly one frame reader, one frame writer, the pending
// stream table, and the sender/receiver tasks for a single transport-level
// connection, per §3's connection lifecycle.
type Connection struct {
	ID string

	stream ByteStream
	codec  *wire.Codec
	log    *logrus.Logger
	instr  *instrumentation

	outbound chan wire.Packet

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// NewConnection wraps stream in a Connection with a freshly assigned
// connection id (matching vertex.go's use of uuid for per-run ids).
func NewConnection(stream ByteStream, log *logrus.Logger) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		stream:   stream,
		codec:    wire.NewCodec(),
		log:      logOrDefault(log),
		instr:    newInstrumentation(),
		outbound: make(chan wire.Packet, 64),
		closed:   make(chan struct{}),
	}
}

// Send enqueues p on the outbound mailbox, awaiting room so per-stream send
// order and backpressure are preserved; the sender task is the single
// consumer, so packets for the same stream from the same caller keep their
// relative order.
func (c *Connection) Send(ctx context.Context, p wire.Packet) error {
	select {
	case <-c.closed:
		return c.closeErr
	default:
	}
	select {
	case c.outbound <- p:
		return nil
	case <-c.closed:
		return c.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.closed
}

// Err returns the error that caused the connection to close, if any.
func (c *Connection) Err() error {
	return c.closeErr
}

// Close shuts the connection down: it sync-drains any packets already
// enqueued on the outbound mailbox (so a Denied or terminal End reply is not
// lost to a race with the sender task), stops accepting further Sends,
// closes the underlying stream, and unblocks RunSender/RunReceiver. Mirrors
// §4.6's "emit Denied{...} and sync-drain to Closed".
func (c *Connection) Close(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		c.drainOutbound()
		close(c.closed)
		_ = c.stream.Close()
	})
}

func (c *Connection) drainOutbound() {
	for {
		select {
		case p, ok := <-c.outbound:
			if !ok {
				return
			}
			frame, err := c.codec.EncodePacket(p)
			if err != nil {
				continue
			}
			_, _ = c.stream.Write(frame)
		default:
			return
		}
	}
}

// RunSender drains the outbound mailbox to the frame writer until the
// connection closes or ctx is cancelled. It is meant to run in its own
// goroutine for the lifetime of the connection, per §5's "one sender task
// writes and flushes".
func (c *Connection) RunSender(ctx context.Context) {
	for {
		select {
		case p, ok := <-c.outbound:
			if !ok {
				return
			}
			frame, err := c.codec.EncodePacket(p)
			if err != nil {
				c.log.WithError(err).WithField("connection_id", c.ID).Error("transport: failed to encode packet")
				continue
			}
			if _, err := c.stream.Write(frame); err != nil {
				c.log.WithError(err).WithField("connection_id", c.ID).Warn("transport: write failed, closing connection")
				c.Close(err)
				return
			}
			c.instr.recordOut(ctx, c.ID, len(frame))
		case <-ctx.Done():
			c.Close(ctx.Err())
			return
		case <-c.closed:
			return
		}
	}
}

// RunReceiver reads bytes off the stream, decodes frames into Packets, and
// hands each to dispatch in arrival order until EOF, a protocol error, or
// ctx cancellation. A clean EOF with no partial frame buffered closes the
// connection normally; EOF with a partial frame buffered is
// wire.ErrConnectionAborted, per §4.4's "end-of-stream mid-frame is a hard
// close" rule.
func (c *Connection) RunReceiver(ctx context.Context, dispatch func(wire.Packet) error) {
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			c.Close(ctx.Err())
			return
		case <-c.closed:
			return
		default:
		}

		n, err := c.stream.Read(buf)
		if n > 0 {
			c.codec.Feed(buf[:n])
			c.instr.recordIn(ctx, c.ID, n)

			for {
				p, ok, derr := c.codec.NextPacket()
				if derr != nil {
					c.log.WithError(derr).WithField("connection_id", c.ID).Warn("transport: protocol error, closing connection")
					c.Close(derr)
					return
				}
				if !ok {
					break
				}
				if derr := dispatch(p); derr != nil {
					c.log.WithError(derr).WithField("connection_id", c.ID).Warn("transport: dispatch failed, closing connection")
					c.Close(derr)
					return
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				if c.codec.Pending() {
					c.log.WithField("connection_id", c.ID).Warn("transport: connection aborted mid frame")
					c.Close(wire.ErrConnectionAborted)
					return
				}
				c.Close(nil)
				return
			}
			c.log.WithError(err).WithField("connection_id", c.ID).Warn("transport: read failed, closing connection")
			c.Close(err)
			return
		}
	}
}
