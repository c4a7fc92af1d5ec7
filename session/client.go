package session

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vowrpc/vow/wire"
)

// ClientSession drives the client side of §4.6, symmetric to ServerSession:
// it emits Service, zero or more Headers, and Begin, then waits for the
// peer's Accepted or Denied.
type ClientSession struct {
	phase Phase
	log   *logrus.Logger
}

// NewClientSession returns a ClientSession in AwaitService.
func NewClientSession(log *logrus.Logger) *ClientSession {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ClientSession{phase: AwaitService, log: log}
}

// Phase returns the session's current state.
func (c *ClientSession) Phase() Phase { return c.phase }

// Open renders the handshake's outbound packets (Service, Headers, Begin) in
// order and advances the local phase to ServiceDecision, awaiting the peer's
// reply. The caller is responsible for writing these packets to the
// transport in order, which the single sender task's FIFO discipline
// guarantees.
func (c *ClientSession) Open(svc wire.Service, headers []wire.Header) []wire.Packet {
	out := make([]wire.Packet, 0, len(headers)+2)
	out = append(out, wire.Packet{Type: wire.TagService, Body: svc})
	for _, h := range headers {
		out = append(out, wire.Packet{Type: wire.TagHeader, Body: h})
	}
	out = append(out, wire.Packet{Type: wire.TagBegin, Body: wire.Begin{}})
	c.phase = ServiceDecision
	return out
}

// HandleReply processes the server's Accepted/Denied packet. On Accepted it
// enters DataPhase; on Denied or any other packet it closes the session and
// returns ErrConnectionAborted, matching "on Denied, close with
// connection_aborted".
func (c *ClientSession) HandleReply(p wire.Packet) error {
	if c.phase != ServiceDecision {
		c.phase = Closed
		return NewProtocolError(CodeHeaderPending, "reply received outside ServiceDecision")
	}
	if p.Stream != nil {
		c.phase = Closed
		return NewProtocolError(CodeStreamNull, "stream must be null before Accepted/Denied")
	}
	switch body := p.Body.(type) {
	case *wire.Accepted:
		c.phase = DataPhase
		c.log.Info("session: service accepted")
		return nil
	case *wire.Denied:
		c.phase = Closed
		c.log.WithField("reason", body.Reason).Warn("session: service denied")
		return ErrConnectionAborted
	default:
		c.phase = Closed
		return fmt.Errorf("session: unexpected packet in ServiceDecision: %v: %w", p.Type, ErrConnectionAborted)
	}
}
