// Package vowconfig is the declarative configuration layer for a connection
// or session: a JSON/YAML-loadable Config plus a per-connection Option that
// merges down from defaults, directly generalizing types.go's
// boolean-pointer *Option/merge/join pattern from per-vertex pipeline
// settings to per-connection transport settings.
package vowconfig

import "time"

// Option holds settings that may be left unset (nil) so Merge can tell
// "not specified" apart from "explicitly set to the zero value", the same
// distinction types.go's *Option fields make for DeepCopy/FIFO/etc.
type Option struct {
	// ConnectTimeout is the configured bound on the handshake. The transport
	// does not read it: Dial waits until the server replies, its ctx ends,
	// or the connection closes.
	// Default: 10s
	ConnectTimeout *time.Duration
	// DefaultBufferSize is the configured flow-control buffer window for
	// streaming calls. The transport does not read it: OpenStream always
	// takes the window as an explicit argument.
	// Default: 16
	DefaultBufferSize *int
	// BidirectionalStreamIDs records whether the even/odd stream-id
	// partitioning scheme is selected. The transport does not read it and
	// has no even/odd mode: the client allocates stream ids monotonically
	// from "0".
	// Default: false
	BidirectionalStreamIDs *bool
	// Metrics records whether otel instrumentation is wanted. The transport
	// does not read it: it records its per-connection instruments
	// (frames/bytes in and out, steps sent, cancellations) regardless.
	// Default: true
	Metrics *bool
}

var defaultOption = &Option{
	ConnectTimeout:         durationP(10 * time.Second),
	DefaultBufferSize:      intP(16),
	BidirectionalStreamIDs: boolP(false),
	Metrics:                boolP(true),
}

func boolP(b bool) *bool                   { return &b }
func intP(i int) *int                      { return &i }
func durationP(d time.Duration) *time.Duration { return &d }

// Resolved returns o merged over the package default, so every field is
// guaranteed non-nil.
func (o *Option) Resolved() *Option {
	if o == nil {
		return defaultOption.clone()
	}
	return defaultOption.join(o)
}

// Merge folds the given overrides onto o in order, later options winning,
// mirroring types.go's *Option.merge variadic fold.
func (o *Option) Merge(options ...*Option) *Option {
	if len(options) == 0 {
		return o
	}
	if len(options) == 1 {
		return o.join(options[0])
	}
	return o.join(options[0]).Merge(options[1:]...)
}

func (o *Option) join(option *Option) *Option {
	out := o.clone()
	if option == nil {
		return out
	}
	if option.ConnectTimeout != nil {
		out.ConnectTimeout = option.ConnectTimeout
	}
	if option.DefaultBufferSize != nil {
		out.DefaultBufferSize = option.DefaultBufferSize
	}
	if option.BidirectionalStreamIDs != nil {
		out.BidirectionalStreamIDs = option.BidirectionalStreamIDs
	}
	if option.Metrics != nil {
		out.Metrics = option.Metrics
	}
	return out
}

func (o *Option) clone() *Option {
	if o == nil {
		return &Option{}
	}
	return &Option{
		ConnectTimeout:         o.ConnectTimeout,
		DefaultBufferSize:      o.DefaultBufferSize,
		BidirectionalStreamIDs: o.BidirectionalStreamIDs,
		Metrics:                o.Metrics,
	}
}
