package session

import (
	"github.com/sirupsen/logrus"

	"github.com/vowrpc/vow/wire"
)

// Phase is one state of the server or client handshake state machine.
type Phase int

// The five states of §4.6's server state machine. A ClientSession passes
// through the symmetric AwaitService/AwaitHeadersOrBegin phase as it sends
// rather than receives, then waits in ServiceDecision for the peer's reply.
const (
	AwaitService Phase = iota
	AwaitHeadersOrBegin
	ServiceDecision
	DataPhase
	Closed
)

func (p Phase) String() string {
	switch p {
	case AwaitService:
		return "await_service"
	case AwaitHeadersOrBegin:
		return "await_headers_or_begin"
	case ServiceDecision:
		return "service_decision"
	case DataPhase:
		return "data_phase"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ServiceTable is the external collaborator the server consults to decide
// whether a requested service name exists. A new implementation supplies its
// own service registry through this narrow interface.
type ServiceTable interface {
	Lookup(name string) bool
}

// ServerSession drives the server side of §4.6: AwaitService ->
// AwaitHeadersOrBegin -> ServiceDecision -> DataPhase -> Closed. It is not
// safe for concurrent use; the receiver task owns it exclusively until the
// data phase begins, matching transport's single frame-reader-owner rule.
type ServerSession struct {
	phase    Phase
	services ServiceTable
	proto    string
	headers  Headers
	service  wire.Service
	log      *logrus.Logger
}

// NewServerSession returns a ServerSession that accepts connections offering
// protocol version proto and resolves service names against services. A nil
// log uses logrus's standard logger, matching pipe.go's defaultLogger
// fallback idiom.
func NewServerSession(services ServiceTable, proto string, log *logrus.Logger) *ServerSession {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ServerSession{phase: AwaitService, services: services, proto: proto, log: log}
}

// Phase returns the session's current state.
func (s *ServerSession) Phase() Phase { return s.phase }

// Headers returns the headers accumulated during the header phase.
func (s *ServerSession) Headers() *Headers { return &s.headers }

// Service returns the name/version/proto the client offered, valid once the
// session has left AwaitService.
func (s *ServerSession) Service() wire.Service { return s.service }

// Handle processes one handshake packet and returns zero or more reply
// packets to send, or a *ProtocolError that closes the connection. Once
// Handle returns a packet with Accepted, the caller hands subsequent
// (necessarily data-phase) packets to muxstream instead.
func (s *ServerSession) Handle(p wire.Packet) ([]wire.Packet, error) {
	switch s.phase {
	case AwaitService:
		return s.handleAwaitService(p)
	case AwaitHeadersOrBegin:
		return s.handleHeadersOrBegin(p)
	default:
		s.phase = Closed
		return nil, NewProtocolError(CodeStreamUnk, "packet received in phase "+s.phase.String())
	}
}

func (s *ServerSession) handleAwaitService(p wire.Packet) ([]wire.Packet, error) {
	if p.Stream != nil {
		s.phase = Closed
		return nil, NewProtocolError(CodeStreamNull, "stream must be null before Accepted/Denied")
	}
	svc, ok := p.Body.(*wire.Service)
	if !ok {
		s.phase = Closed
		return nil, NewProtocolError(CodeHeaderPending, "expected Service as the first packet")
	}
	s.service = *svc
	s.phase = AwaitHeadersOrBegin
	s.log.WithFields(logrus.Fields{"service": svc.Name, "proto": svc.Proto}).Debug("session: service offered")
	return nil, nil
}

func (s *ServerSession) handleHeadersOrBegin(p wire.Packet) ([]wire.Packet, error) {
	if p.Stream != nil {
		s.phase = Closed
		return nil, NewProtocolError(CodeStreamNull, "stream must be null before Accepted/Denied")
	}
	switch body := p.Body.(type) {
	case *wire.Header:
		var v any
		if body.Value.Present {
			v = body.Value.Value
		}
		s.headers.Add(body.Name, v)
		return nil, nil
	case *wire.Begin:
		s.phase = ServiceDecision
		return s.decide()
	default:
		s.phase = Closed
		return nil, NewProtocolError(CodeHeaderPending, "expected Header or Begin")
	}
}

// decide consults the ServiceTable and proto string and produces the
// handshake's terminal reply: Accepted (entering DataPhase) or Denied
// (followed by a synchronous close), per §4.6.
func (s *ServerSession) decide() ([]wire.Packet, error) {
	if s.service.Proto != s.proto {
		s.phase = Closed
		s.log.WithField("proto", s.service.Proto).Warn("session: denied, unsupported protocol")
		return []wire.Packet{{Type: wire.TagDenied, Body: wire.Denied{Reason: "proto"}}}, nil
	}
	if s.services == nil || !s.services.Lookup(s.service.Name) {
		s.phase = Closed
		s.log.WithField("service", s.service.Name).Warn("session: denied, service unknown")
		return []wire.Packet{{Type: wire.TagDenied, Body: wire.Denied{Reason: "service unknown"}}}, nil
	}
	s.phase = DataPhase
	s.log.WithField("service", s.service.Name).Info("session: accepted")
	return []wire.Packet{{Type: wire.TagAccepted, Body: wire.Accepted{}}}, nil
}
