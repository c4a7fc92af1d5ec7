package muxstream

import (
	"sync"

	"github.com/vowrpc/vow/session"
)

// defaultMailboxCapacity bounds each stream's inbox so a slow handler
// applies backpressure to the receiver rather than growing without limit,
// per §9's "mailboxes with bounded capacity for backpressure" guidance.
const defaultMailboxCapacity = 32

// Table is a connection's stream table: stream-id -> per-stream state. It is
// owned by the receiver task; handlers only ever reach their own Stream.
type Table struct {
	mu      sync.Mutex
	streams map[StreamID]*Stream
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{streams: make(map[StreamID]*Stream)}
}

// Open allocates a new Stream for id with the given initial buffer window.
// Returns a *session.ProtocolError with CodeStreamUsed if id is already
// open, per "duplicate opens are a protocol error".
func (t *Table) Open(id StreamID, buffer int) (*Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.streams[id]; ok {
		return nil, session.NewProtocolError(session.CodeStreamUsed, "stream "+string(id)+" already open")
	}
	s := newStream(id, buffer, defaultMailboxCapacity)
	t.streams[id] = s
	return s, nil
}

// Lookup returns the Stream registered for id, if any.
func (t *Table) Lookup(id StreamID) (*Stream, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.streams[id]
	return s, ok
}

// Close drops id's row. Per §4.7, this happens immediately after a stream's
// terminal End or Error; any later packet for id (other than Cancel, which
// is ignored post-close) is a stream_unk protocol error.
func (t *Table) Close(id StreamID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.streams, id)
}

// Len reports how many streams are currently open, mainly for tests and
// diagnostics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}
