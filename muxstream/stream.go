// Package muxstream implements the per-connection stream multiplexer of
// §4.7: a table of logical streams identified by an opaque id, each with an
// ordered inbound mailbox and, for iterative calls, flow-control cursors
// bounding how many unacked Steps may be in flight.
package muxstream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vowrpc/vow/wire"
)

// StreamID is a per-connection opaque stream identifier.
type StreamID string

// Stream is one logical, ordered sequence of packets. Its inbound mailbox
// preserves send order; handlers mutate only their own Stream, never the
// table directly, matching §5's "handlers mutate only their own state via
// typed channels" rule.
type Stream struct {
	ID StreamID

	inbox chan wire.Packet

	mu             sync.Mutex
	advertised     int
	lastIndexSent  int
	lastIndexAcked int
	lastIndexSeen  int
	opened         bool

	cancelled atomic.Bool
	closed    atomic.Bool
}

func newStream(id StreamID, buffer, mailboxCapacity int) *Stream {
	return &Stream{
		ID:         id,
		inbox:      make(chan wire.Packet, mailboxCapacity),
		advertised: buffer,
	}
}

// Deliver enqueues an inbound packet for this stream's handler, awaiting
// room in the mailbox so backpressure is preserved rather than dropped.
// Resolves spec.md §9's open question (b): the server's request-path enqueue
// is always awaited.
func (s *Stream) Deliver(ctx context.Context, p wire.Packet) error {
	select {
	case s.inbox <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks for the next inbound packet, or returns ctx.Err() if ctx ends
// first.
func (s *Stream) Recv(ctx context.Context) (wire.Packet, error) {
	select {
	case p := <-s.inbox:
		return p, nil
	case <-ctx.Done():
		return wire.Packet{}, ctx.Err()
	}
}

// CanSendStep reports whether the advertised buffer window still allows one
// more Step to be sent without exceeding the unacked-in-flight bound
// `buffer - (last_index_sent - last_index_acked)`.
func (s *Stream) CanSendStep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertised-(s.lastIndexSent-s.lastIndexAcked) > 0
}

// NextStepIndex returns the index the next Step must carry and records it as
// sent. Indices start at 0 and increase by exactly 1, per the stream
// indexing invariant.
func (s *Stream) NextStepIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.lastIndexSent
	s.lastIndexSent++
	return idx
}

// Ack records a StepAck up through index, optionally widening the
// advertised buffer window.
func (s *Stream) Ack(index int, buffer *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index+1 > s.lastIndexAcked {
		s.lastIndexAcked = index + 1
	}
	if buffer != nil {
		s.advertised = *buffer
	}
}

// ObserveIndex validates that index continues the strictly monotonic
// sequence the client must observe, advancing lastIndexSeen. Used on the
// receiving side of a Step to catch a non-conforming peer.
func (s *Stream) ObserveIndex(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index != s.lastIndexSeen {
		return false
	}
	s.lastIndexSeen++
	return true
}

// Cancel sets the cooperative cancellation flag; handlers observe it at
// their next yield point (their next Recv or Deliver call) and must emit no
// further Step after observing it.
func (s *Stream) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called for this stream.
func (s *Stream) Cancelled() bool {
	return s.cancelled.Load()
}

// MarkClosed records that this stream received its terminal End or Error.
// It does not remove the stream from its Table; callers drop the row via
// Table.Close immediately after.
func (s *Stream) MarkClosed() {
	s.closed.Store(true)
}

// Closed reports whether this stream has already been terminated.
func (s *Stream) Closed() bool {
	return s.closed.Load()
}
