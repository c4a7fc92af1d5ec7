// Package session implements the handshake state machine layered on top of
// wire.Packet: Service + optional Headers + Begin, an Accepted/Denied
// decision, then the data phase where packets are routed by stream id.
// Grounds vow/rpc/server.py and vow/rpc/client.py's handshake loops.
package session

import "fmt"

// ErrorCode is a protocol-level failure tag, distinct from marsh.Error's
// serialization Reason: a ProtocolError closes the connection, it is never
// recovered at the boundary that triggered it.
type ErrorCode string

// The four protocol error codes the session and stream multiplexer raise.
const (
	CodeStreamUnk     ErrorCode = "stream_unk"
	CodeStreamNull    ErrorCode = "stream_null"
	CodeStreamUsed    ErrorCode = "stream_used"
	CodeHeaderPending ErrorCode = "header_pending"
)

// ProtocolError terminates the connection it occurred on; it never reaches
// the wire as a Packet (contrast wire.PacketError, which is an application-
// visible stream failure the connection survives).
type ProtocolError struct {
	Code    ErrorCode
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("session: protocol error %s", e.Code)
	}
	return fmt.Sprintf("session: protocol error %s: %s", e.Code, e.Message)
}

// Is reports whether target is a *ProtocolError with the same Code, letting
// callers write errors.Is(err, &session.ProtocolError{Code: session.CodeStreamUnk}).
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return true
	}
	return t.Code == e.Code
}

// NewProtocolError constructs a ProtocolError with the given code and message.
func NewProtocolError(code ErrorCode, message string) *ProtocolError {
	return &ProtocolError{Code: code, Message: message}
}

// ErrConnectionAborted mirrors wire.ErrConnectionAborted at the session
// layer: a Denied decision, a mid-frame EOF, or a protocol error all close
// the connection. Closing sends no End{cancelled:true} for the streams still
// open on it; their readers see the connection close, not a terminal End.
var ErrConnectionAborted = fmt.Errorf("session: connection aborted")
