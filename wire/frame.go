package wire

import (
	"errors"

	"github.com/vowrpc/vow/marsh"
)

// ErrConnectionAborted is the hard-close error produced when the underlying
// stream ends in the middle of a frame: a varint prefix or a declared body
// length that the peer never finished sending. Grounds the "end-of-stream
// mid-frame is a hard close" rule of the frame codec design.
var ErrConnectionAborted = errors.New("wire: connection aborted mid frame")

// Reader decodes a byte stream into a sequence of frame payloads: each frame
// is varint(len(payload)) ++ payload. It owns its receive buffer exclusively;
// callers must not share a Reader across goroutines (the receiver task in
// transport is the only writer).
type Reader struct {
	buf []byte
}

// NewReader returns an empty Reader.
func NewReader() *Reader {
	return &Reader{}
}

// Feed appends newly read bytes to the receive buffer.
func (r *Reader) Feed(b []byte) {
	r.buf = append(r.buf, b...)
}

// Next attempts to decode one frame payload from the buffered bytes.
//
//   - ok == true: payload holds exactly one frame's body; the consumed bytes
//     (prefix and body) are dropped from the internal buffer.
//   - ok == false, err == nil: the buffer holds an incomplete frame
//     (buffer_needed); the caller should Feed more bytes and call Next again.
//   - err != nil: the prefix itself is malformed (not buffer_needed); this is
//     a protocol-level failure, not a recoverable one.
func (r *Reader) Next() (payload []byte, ok bool, err error) {
	n, consumed, derr := marsh.DecodeVarint(r.buf)
	if derr != nil {
		if marsh.IsBufferNeeded(derr) {
			return nil, false, nil
		}
		return nil, false, derr
	}
	rest := r.buf[consumed:]
	if uint64(len(rest)) < n {
		return nil, false, nil
	}
	payload = append([]byte(nil), rest[:n]...)
	r.buf = append([]byte(nil), rest[n:]...)
	return payload, true, nil
}

// Pending reports whether the buffer holds any bytes of an as-yet incomplete
// frame. The enclosing reader loop uses this to distinguish a clean
// end-of-stream (Pending() == false) from ErrConnectionAborted
// (Pending() == true): EOF arriving mid-frame is a hard close, not a normal
// end of traffic.
func (r *Reader) Pending() bool {
	return len(r.buf) > 0
}

// Writer renders frame payloads for a single ordered output stream. Encode
// is O(n) in the payload length with one output allocation, per the frame
// codec's encode contract.
type Writer struct{}

// NewWriter returns a Writer. Writer holds no state; callers may share one
// across goroutines, but typically a single sender task owns the stream.
func NewWriter() *Writer {
	return &Writer{}
}

// Encode renders varint(len(payload)) ++ payload as one contiguous buffer.
func (w *Writer) Encode(payload []byte) []byte {
	prefix := marsh.EncodeVarint(uint64(len(payload)))
	out := make([]byte, 0, len(prefix)+len(payload))
	out = append(out, prefix...)
	out = append(out, payload...)
	return out
}
