package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/vowrpc/vow/wire"
)

// Headers accumulates the (name, value) pairs sent during the header phase,
// in the order received. Lookups are case-insensitive on name, matching the
// two reserved-but-uninterpreted semantics the spec calls out:
// "authorization" and "deadline".
type Headers struct {
	entries []wire.Header
}

// Add records one header, preserving arrival order.
func (h *Headers) Add(name string, value any) {
	h.entries = append(h.entries, wire.Header{Name: name, Value: wire.Some(value)})
}

// All returns every accumulated header in arrival order. Values are deep
// copied before being handed back, the same way packet.go's log() snapshots
// Data with copystructure before passing it across a goroutine boundary: a
// header's Value may be a caller-owned map or slice, and the returned slice
// is read from both the session goroutine and whatever handler goroutine
// receives it.
func (h *Headers) All() []wire.Header {
	out := make([]wire.Header, len(h.entries))
	for i, e := range h.entries {
		v := e.Value
		if e.Value.Value != nil {
			if cp, err := copystructure.Copy(e.Value.Value); err == nil {
				v = wire.Some(cp)
			}
		}
		out[i] = wire.Header{Name: e.Name, Value: v}
	}
	return out
}

// Lookup returns the value of the last header matching name, case-insensitive.
// Headers carried verbatim: the session layer never interprets the value
// beyond the deadline/authorization helpers below.
func (h *Headers) Lookup(name string) (any, bool) {
	var found any
	ok := false
	for _, e := range h.entries {
		if strings.EqualFold(e.Name, name) {
			found = e.Value.Value
			ok = true
		}
	}
	return found, ok
}

// Authorization returns the "authorization" header's value, if present,
// carried verbatim with no parsing: auth semantics are a non-goal of this
// module, per spec.md §1.
func (h *Headers) Authorization() (any, bool) {
	return h.Lookup("authorization")
}

// Deadline parses the "deadline" header, if present, as an RFC3339
// timestamp. Resolves spec.md §9's open question (c): the core does not
// enforce the deadline itself, it surfaces it so session.ApplyDeadline can
// apply it as a context.Context deadline on the handler invocation.
func (h *Headers) Deadline() (time.Time, bool, error) {
	raw, ok := h.Lookup("deadline")
	if !ok {
		return time.Time{}, false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false, fmt.Errorf("session: deadline header is not a string: %T", raw)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("session: malformed deadline header: %w", err)
	}
	return t, true, nil
}
