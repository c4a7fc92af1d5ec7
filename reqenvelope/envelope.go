// Package reqenvelope defines the Request Envelope type consumed by the
// out-of-scope HTTP-binding adapter (§6): the core exposes only this type
// and a mapper factory to decode parameters from strings, the adapter itself
// is an external collaborator this module does not implement.
package reqenvelope

import "github.com/vowrpc/vow/marsh"

// Placement names where a Parameter's string value was found on the HTTP
// request, mirroring the OpenAPI "style"/"explode" parameter locations the
// HTTP-binding adapter reads.
type Placement string

// The four OpenAPI-style parameter placements the adapter must distinguish
// to know how to decode a raw string into a typed value.
const (
	PlacementPath   Placement = "path"
	PlacementQuery  Placement = "query"
	PlacementHeader Placement = "header"
	PlacementCookie Placement = "cookie"
)

// Parameter is one named value lifted off an HTTP request by the adapter
// before decoding, carrying enough context (Placement, Style, Explode) for a
// mapper built from the Walker's descriptor graph to parse it correctly.
type Parameter struct {
	Name      string
	Placement Placement
	// Style and Explode mirror the OpenAPI style/explode table (e.g.
	// "simple"/"form", explode true/false) the adapter reads to decide how
	// a comma/array-valued string should be split before being handed to
	// the parameter's mapper.
	Style   string
	Explode bool
	Value   string
}

// Envelope is the narrow contract the HTTP-binding adapter translates
// to/from an HTTP request: a method, the parameters the adapter has already
// lifted off the URL/headers/cookies, a decoded request body, and any
// errors accumulated while decoding parameters (so a single malformed
// request can report every offending field, not just the first).
type Envelope struct {
	URL        string
	Method     string
	Parameters []Parameter
	Body       any
	Errors     []error
}

// ParameterMapper is the mapper factory the adapter uses to decode a
// Parameter's raw string Value into a typed value per its declared type,
// built from the same marsh.Descriptor graph a Walker produces for the
// parameter's declared Go type. The factory, not a single shared mapper, is
// exposed because each parameter's Style/Explode combination may require a
// different leaf composition (e.g. a comma-split List vs a bare scalar).
type ParameterMapper func(p Parameter) (marsh.Mapper, error)
