package muxstream

import (
	"context"

	"github.com/vowrpc/vow/session"
	"github.com/vowrpc/vow/wire"
)

// Opener is called when a new stream is opened by an incoming Request or
// Start packet; it is handed the freshly allocated Stream and the opening
// packet and is expected to spawn whatever handler task processes it. A
// connection's transport layer supplies this to bind routing to its own
// method dispatch.
type Opener func(ctx context.Context, s *Stream, opening wire.Packet)

// Route dispatches one data-phase packet (Stream must be non-nil, enforced
// by the caller's session phase check) to this Table, opening a new Stream
// for Request/Start or delivering to an existing one otherwise. It returns a
// *session.ProtocolError for any of the violations enumerated in §4.7:
// stream_null (nil id reaching here), stream_used (duplicate open),
// stream_unk (unknown id, or any post-close packet other than Cancel).
func (t *Table) Route(ctx context.Context, p wire.Packet, open Opener) error {
	if p.Stream == nil {
		return session.NewProtocolError(session.CodeStreamNull, "data-phase packet missing stream id")
	}
	id := StreamID(*p.Stream)

	switch body := p.Body.(type) {
	case *wire.Request:
		s, err := t.Open(id, 0)
		if err != nil {
			return err
		}
		open(ctx, s, p)
		return nil
	case *wire.Start:
		s, err := t.Open(id, body.Buffer)
		if err != nil {
			return err
		}
		open(ctx, s, p)
		return nil
	case *wire.Cancel:
		s, ok := t.Lookup(id)
		if !ok {
			// Cancel for an already-closed or never-opened stream is
			// silently ignored, per "Cancel... is silently ignored post-close".
			return nil
		}
		s.Cancel()
		return s.Deliver(ctx, p)
	case *wire.StepAck:
		s, ok := t.Lookup(id)
		if !ok {
			return session.NewProtocolError(session.CodeStreamUnk, "StepAck for unknown stream "+string(id))
		}
		var buffer *int
		if body.Buffer.Present {
			v := body.Buffer.Value
			buffer = &v
		}
		s.Ack(body.Index, buffer)
		return s.Deliver(ctx, p)
	default:
		s, ok := t.Lookup(id)
		if !ok {
			return session.NewProtocolError(session.CodeStreamUnk, "packet for unknown stream "+string(id))
		}
		if err := s.Deliver(ctx, p); err != nil {
			return err
		}
		if isTerminal(body) {
			s.MarkClosed()
			t.Close(id)
		}
		return nil
	}
}

// isTerminal reports whether body is one of the two packet variants that
// terminate a stream: End or Error (wire.PacketError).
func isTerminal(body wire.Body) bool {
	switch body.(type) {
	case *wire.End, *wire.PacketError:
		return true
	default:
		return false
	}
}
