package marsh

import (
	"errors"
	"fmt"
)

// Reason is the tag carried by an Error describing why a mapper failed.
type Reason string

// Reasons recognized by the mapping engine. BufferNeeded is not terminal: it
// signals the frame reader to refill its buffer and retry, see wire.Reader.
const (
	ReasonBufferNeeded   Reason = "buffer_needed"
	ReasonNotBytes       Reason = "not_bytes"
	ReasonNotInt         Reason = "not_int"
	ReasonAttrMissing    Reason = "attr_missing"
	ReasonKeyMissing     Reason = "key_missing"
	ReasonUnmappable     Reason = "unmappable"
	ReasonInvalidEnumKey Reason = "invalid_enum_key"
	ReasonNotInstance    Reason = "not_instance"
	ReasonJSON           Reason = "json"
	ReasonInvalidObj     Reason = "invalid_obj"
	ReasonConfig         Reason = "config"
)

// Error is a path-tagged serialization error. Path segments are prepended as
// the error unwinds through nested mappers, so the outermost caller sees the
// full path to the failing site (e.g. "struct.field.$attr").
type Error struct {
	Reason Reason
	Path   []string
	Value  any
	Cause  error
}

func (e *Error) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("marsh: %s: %v", e.Reason, e.Value)
	}
	return fmt.Sprintf("marsh: %s at %s: %v", e.Reason, pathString(e.Path), e.Value)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether err (or any error it wraps) is a *Error with the same
// Reason. It lets callers write errors.Is(err, &marsh.Error{Reason: marsh.ReasonKeyMissing}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason == "" {
		return true
	}
	return t.Reason == e.Reason
}

// WithPath returns a copy of e with the given segments prepended to its Path.
func (e *Error) WithPath(segments ...string) *Error {
	if len(segments) == 0 {
		return e
	}
	path := make([]string, 0, len(segments)+len(e.Path))
	path = append(path, segments...)
	path = append(path, e.Path...)
	return &Error{Reason: e.Reason, Path: path, Value: e.Value, Cause: e.Cause}
}

func pathString(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// NewError constructs a fresh (unpathed) serialization error.
func NewError(reason Reason, value any, cause error) *Error {
	return &Error{Reason: reason, Value: value, Cause: cause}
}

// wrapPath re-raises err with the given path segments prepended if it is a
// *Error, mirroring the teacher's subserializer context manager from
// vow/marsh/error.py which prepends path on unwind.
func wrapPath(err error, segment string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se.WithPath(segment)
	}
	return err
}

// IsBufferNeeded reports whether err signals that more input is required,
// the control signal the frame reader's inner loop watches for.
func IsBufferNeeded(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Reason == ReasonBufferNeeded
	}
	return false
}
