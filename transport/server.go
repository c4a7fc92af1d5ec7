package transport

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vowrpc/vow/muxstream"
	"github.com/vowrpc/vow/session"
	"github.com/vowrpc/vow/wire"
)

// Handler is the application-level collaborator a Server dispatches opened
// streams to. A new implementation supplies its own method routing (the
// out-of-scope HTTP-binding adapter, or any other front end) through this
// narrow interface; Server itself only knows how to open/route/close
// streams and apply flow control.
type Handler interface {
	// Unary executes method once and returns the application result body,
	// or an error to be reported as a terminal wire.PacketError.
	Unary(ctx context.Context, method string, body any) (any, error)
	// Stream executes method, calling emit once per item to send as a Step.
	// It returns when the call is finished or ctx is cancelled (observed at
	// emit's next call, per the cooperative cancellation model).
	Stream(ctx context.Context, method string, body any, emit func(item any) error) error
}

// Server binds a session.ServiceTable, a protocol version, and a Handler to
// accepted connections.
type Server struct {
	services session.ServiceTable
	proto    string
	handler  Handler
	log      *logrus.Logger
}

// NewServer returns a Server accepting the given proto version and routing
// opened streams to handler.
func NewServer(services session.ServiceTable, proto string, handler Handler, log *logrus.Logger) *Server {
	return &Server{services: services, proto: proto, handler: handler, log: logOrDefault(log)}
}

// Serve drives one accepted connection through the handshake and data phase
// until it closes, per §4.6/§4.7. It blocks until the connection ends and
// returns the reason (nil on a clean peer-initiated close).
func (srv *Server) Serve(ctx context.Context, stream ByteStream) error {
	conn := NewConnection(stream, srv.log)
	sess := session.NewServerSession(srv.services, srv.proto, srv.log)
	table := muxstream.NewTable()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go conn.RunSender(ctx)

	opener := srv.opener(ctx, conn, table, sess)

	dispatch := func(p wire.Packet) error {
		if sess.Phase() != session.DataPhase {
			replies, err := sess.Handle(p)
			if err != nil {
				return err
			}
			for _, r := range replies {
				if err := conn.Send(ctx, r); err != nil {
					return err
				}
			}
			if sess.Phase() == session.Closed {
				return fmt.Errorf("transport: handshake closed: %w", session.ErrConnectionAborted)
			}
			return nil
		}
		return table.Route(ctx, p, opener)
	}

	conn.RunReceiver(ctx, dispatch)
	<-conn.Done()
	return conn.Err()
}

// opener returns the muxstream.Opener that spawns one goroutine per opened
// stream, running the application Handler and translating its result into
// the terminal Step/End/Error sequence. Each handler invocation runs under a
// context derived from the handshake's "deadline" header, per
// session.ApplyDeadline's surfaced-not-enforced treatment of request timeouts.
func (srv *Server) opener(ctx context.Context, conn *Connection, table *muxstream.Table, sess *session.ServerSession) muxstream.Opener {
	return func(ctx context.Context, s *muxstream.Stream, opening wire.Packet) {
		streamStr := string(*opening.Stream)
		go func() {
			hctx, cancel := session.ApplyDeadline(ctx, sess.Headers(), srv.log)
			defer cancel()
			switch body := opening.Body.(type) {
			case *wire.Request:
				srv.runUnary(hctx, conn, table, s, streamStr, body)
			case *wire.Start:
				srv.runStream(hctx, conn, table, s, streamStr, body)
			}
		}()
	}
}

func (srv *Server) runUnary(ctx context.Context, conn *Connection, table *muxstream.Table, s *muxstream.Stream, streamStr string, req *wire.Request) {
	ctx, span := startCallSpan(ctx, conn.ID, req.Method)
	defer span.End()

	result, err := srv.handler.Unary(ctx, req.Method, req.Body)
	var reply wire.Packet
	if err != nil {
		reply = wire.Packet{Stream: &streamStr, Type: wire.TagError, Body: wire.PacketError{Type: "handler_error", Body: wire.Some[any](err.Error())}}
	} else {
		reply = wire.Packet{Stream: &streamStr, Type: wire.TagEnd, Body: wire.End{Cancelled: false, Body: result}}
	}
	s.MarkClosed()
	table.Close(muxstream.StreamID(streamStr))
	_ = conn.Send(ctx, reply)
}

func (srv *Server) runStream(ctx context.Context, conn *Connection, table *muxstream.Table, s *muxstream.Stream, streamStr string, start *wire.Start) {
	ctx, span := startCallSpan(ctx, conn.ID, start.Method)
	defer span.End()

	emit := func(item any) error {
		for !s.CanSendStep() {
			if s.Cancelled() {
				return errCancelled
			}
			ack, err := s.Recv(ctx)
			if err != nil {
				return err
			}
			if a, ok := ack.Body.(*wire.StepAck); ok {
				var buf *int
				if a.Buffer.Present {
					v := a.Buffer.Value
					buf = &v
				}
				s.Ack(a.Index, buf)
			}
		}
		if s.Cancelled() {
			return errCancelled
		}
		idx := s.NextStepIndex()
		conn.instr.recordStep(ctx, conn.ID, streamStr)
		return conn.Send(ctx, wire.Packet{Stream: &streamStr, Type: wire.TagStep, Body: wire.Step{Index: idx, Body: item}})
	}

	err := srv.handler.Stream(ctx, start.Method, start.Body, emit)
	cancelled := s.Cancelled() || err == errCancelled
	s.MarkClosed()
	table.Close(muxstream.StreamID(streamStr))
	if err != nil && !cancelled {
		_ = conn.Send(ctx, wire.Packet{Stream: &streamStr, Type: wire.TagError, Body: wire.PacketError{Type: "handler_error", Body: wire.Some[any](err.Error())}})
		return
	}
	if cancelled {
		conn.instr.recordCancel(ctx, conn.ID, streamStr)
	}
	_ = conn.Send(ctx, wire.Packet{Stream: &streamStr, Type: wire.TagEnd, Body: wire.End{Cancelled: cancelled}})
}

var errCancelled = fmt.Errorf("transport: stream cancelled")
