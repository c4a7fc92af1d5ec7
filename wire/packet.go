// Package wire implements the byte-level frame format and the typed Packet
// envelope carried on top of it: a varint length prefix followed by a JSON
// object whose "type" tag selects one of a fixed set of body variants.
// Grounds vow/rpc/wire.py, which defines the identical tag table and the
// same null-stream-during-handshake / non-null-stream-in-data-phase rule.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Opt represents a JSON value that may be entirely absent from the wire
// (Present == false, the key never appeared) as distinct from explicitly
// present but null (Present == true, Value is T's zero value). Plain
// encoding/json struct tags cannot make this distinction - omitempty drops
// zero values on encode and UnmarshalJSON is simply never invoked for an
// absent key - so every optional Packet field uses Opt instead. Grounds the
// Header/Denied/Cancel optional-value handling called out in vow/rpc/wire.py
// and vow/rpc/decl.py's distinct treatment of "missing" vs "null".
type Opt[T any] struct {
	Value   T
	Present bool
}

// Some returns a present Opt wrapping v.
func Some[T any](v T) Opt[T] { return Opt[T]{Value: v, Present: true} }

// MarshalJSON renders an absent Opt as JSON null and a present one as its
// value (which may itself marshal to null).
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON is only invoked by encoding/json when the key was present in
// the source object, so simply running sets Present.
func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Present = true
	if string(b) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// Tag is one of the fixed packet-type wire strings.
type Tag string

// The exact wire strings recognized by the packet tag table.
const (
	TagService  Tag = "service"
	TagHeader   Tag = "header"
	TagBegin    Tag = "begin"
	TagAccepted Tag = "accepted"
	TagDenied   Tag = "denied"
	TagRequest  Tag = "request"
	TagError    Tag = "error"
	TagCancel   Tag = "cancel"
	TagStart    Tag = "start"
	TagStep     Tag = "step"
	TagStepAck  Tag = "stepa"
	TagEnd      Tag = "end"
)

// Body is implemented by every packet body variant; Tag identifies which
// wire tag it must be paired with.
type Body interface {
	Tag() Tag
}

// Service names the requested service and protocol version, the first
// packet of every connection.
type Service struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Proto   string `json:"proto"`
}

func (Service) Tag() Tag { return TagService }

// Header carries one arbitrary (name, value) pair during the header phase.
// Two names are given reserved-but-uninterpreted meaning at the session
// layer: "authorization" and "deadline" (both case-insensitive).
type Header struct {
	Name  string   `json:"name"`
	Value Opt[any] `json:"value"`
}

func (Header) Tag() Tag { return TagHeader }

// Begin marks the end of the header phase.
type Begin struct{}

func (Begin) Tag() Tag { return TagBegin }

// Accepted confirms the requested service was found; the connection enters
// the data phase.
type Accepted struct{}

func (Accepted) Tag() Tag { return TagAccepted }

// Denied rejects the requested service (or a malformed handshake) and
// precedes a connection close.
type Denied struct {
	Reason string   `json:"reason"`
	Value  Opt[any] `json:"value"`
}

func (Denied) Tag() Tag { return TagDenied }

// Request opens a unary or streaming call by naming a method and an
// application-level request body.
type Request struct {
	Method string `json:"method"`
	Body   any    `json:"body"`
}

func (Request) Tag() Tag { return TagRequest }

// PacketError terminates a stream with an application or transport-visible
// failure, distinct from session.ProtocolError which never reaches the wire.
type PacketError struct {
	Type string   `json:"type"`
	Body Opt[any] `json:"body"`
}

func (PacketError) Tag() Tag { return TagError }

// Cancel asks the peer to wind the stream down; an optional human-readable
// reason may accompany it.
type Cancel struct {
	Reason Opt[string] `json:"reason"`
}

func (Cancel) Tag() Tag { return TagCancel }

// Start opens a streaming call, naming a method the same way Request does
// and advertising the receiver's initial flow control buffer window.
type Start struct {
	Method string `json:"method"`
	Buffer int    `json:"buffer"`
	Body   any    `json:"body"`
}

func (Start) Tag() Tag { return TagStart }

// Step delivers one item of a stream, tagged with a strictly monotonically
// increasing index starting at 0.
type Step struct {
	Index int `json:"index"`
	Body  any `json:"body"`
}

func (Step) Tag() Tag { return TagStep }

// StepAck acknowledges receipt up through Index and optionally advertises a
// widened buffer window for further Steps.
type StepAck struct {
	Index  int      `json:"index"`
	Buffer Opt[int] `json:"buffer"`
	Body   Opt[any] `json:"body"`
}

func (StepAck) Tag() Tag { return TagStepAck }

// UnmarshalJSON decodes a StepAck, reading a null "buffer" as absent (an Ack
// that does not widen the window renders its Buffer as null).
func (a *StepAck) UnmarshalJSON(b []byte) error {
	type stepAck StepAck
	if err := json.Unmarshal(b, (*stepAck)(a)); err != nil {
		return err
	}
	var raw struct {
		Buffer json.RawMessage `json:"buffer"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if string(raw.Buffer) == "null" {
		a.Buffer = Opt[int]{}
	}
	return nil
}

// End terminates a stream successfully (or via cooperative cancellation),
// optionally carrying a final value.
type End struct {
	Cancelled bool `json:"cancelled"`
	Body      any  `json:"body"`
}

func (End) Tag() Tag { return TagEnd }

// constructors is the packet tag table: wire tag -> zero-value body pointer
// to unmarshal into (the reverse direction is each Body's Tag method). Built
// once, mirroring vow/rpc/wire.py's
// PACKET_TYPE_MAP, which is likewise assembled at import time rather than
// re-derived per packet.
var constructors = map[Tag]func() Body{
	TagService:  func() Body { return &Service{} },
	TagHeader:   func() Body { return &Header{} },
	TagBegin:    func() Body { return &Begin{} },
	TagAccepted: func() Body { return &Accepted{} },
	TagDenied:   func() Body { return &Denied{} },
	TagRequest:  func() Body { return &Request{} },
	TagError:    func() Body { return &PacketError{} },
	TagCancel:   func() Body { return &Cancel{} },
	TagStart:    func() Body { return &Start{} },
	TagStep:     func() Body { return &Step{} },
	TagStepAck:  func() Body { return &StepAck{} },
	TagEnd:      func() Body { return &End{} },
}

// Packet is one envelope on the wire: a tag, an optional stream id (null
// during the handshake, non-null in the data phase), and a tag-appropriate
// body. Stream is a pointer so the zero value distinguishes "null" (nil)
// from "the empty string" (a valid, if unusual, stream id).
type Packet struct {
	Type   Tag
	Stream *string
	Body   Body
}

type wireForm struct {
	Type   Tag             `json:"type"`
	Stream *string         `json:"stream"`
	Body   json.RawMessage `json:"body"`
}

// MarshalJSON renders p as {"type", "stream", "body"}, rejecting packets
// whose Body disagrees with Type.
func (p Packet) MarshalJSON() ([]byte, error) {
	if p.Body != nil && p.Body.Tag() != p.Type {
		return nil, fmt.Errorf("wire: packet type %q does not match body tag %q", p.Type, p.Body.Tag())
	}
	body, err := json.Marshal(p.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireForm{Type: p.Type, Stream: p.Stream, Body: body})
}

// UnmarshalJSON parses a wire object, dispatching "body" through the packet
// tag table by "type". An unrecognized type is a protocol error, reported to
// the caller as a plain error since wire has no notion of session state.
func (p *Packet) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type   Tag             `json:"type"`
		Stream *string         `json:"stream"`
		Body   json.RawMessage `json:"body"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("wire: malformed packet: %w", err)
	}

	ctor, ok := constructors[raw.Type]
	if !ok {
		return fmt.Errorf("wire: unknown packet type %q", raw.Type)
	}
	body := ctor()
	if len(raw.Body) > 0 && string(raw.Body) != "null" {
		if err := json.Unmarshal(raw.Body, body); err != nil {
			return fmt.Errorf("wire: malformed %q body: %w", raw.Type, err)
		}
	}

	p.Type = raw.Type
	p.Stream = raw.Stream
	p.Body = body
	return nil
}
