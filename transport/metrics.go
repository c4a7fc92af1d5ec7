package transport

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// instrumentation bundles the per-connection otel counters, generalizing
// vertex.go's package-level meter/counters (inCounter/outCounter/
// errorsCounter/batchDuration) from one counter set per process to one
// instrument set shared across connections, labeled per call instead of
// being rebuilt per vertex.
type instrumentation struct {
	framesIn    metric.Int64Counter
	framesOut   metric.Int64Counter
	bytesIn     metric.Int64Counter
	bytesOut    metric.Int64Counter
	stepsSent   metric.Int64Counter
	cancelCount metric.Int64Counter
}

var meter = otel.GetMeterProvider().Meter("vow/transport")

// tracer mirrors vertex.go's package-level tracer built off
// otel.GetTracerProvider(), used to span a call's lifetime rather than a
// vertex's processing of one packet.
var tracer = otel.GetTracerProvider().Tracer("vow/transport")

// startCallSpan opens a span covering one unary Call or streaming Recv loop,
// the per-call analog of vertex.go's per-packet span keyed by vertex id.
func startCallSpan(ctx context.Context, connID, method string) (context.Context, trace.Span) {
	return tracer.Start(ctx, method, trace.WithAttributes(
		attribute.String("connection_id", connID),
	))
}

func newInstrumentation() *instrumentation {
	framesIn, _ := meter.Int64Counter("vow.transport.frames_in")
	framesOut, _ := meter.Int64Counter("vow.transport.frames_out")
	bytesIn, _ := meter.Int64Counter("vow.transport.bytes_in")
	bytesOut, _ := meter.Int64Counter("vow.transport.bytes_out")
	stepsSent, _ := meter.Int64Counter("vow.transport.steps_sent")
	cancelCount, _ := meter.Int64Counter("vow.transport.cancellations")
	return &instrumentation{
		framesIn:    framesIn,
		framesOut:   framesOut,
		bytesIn:     bytesIn,
		bytesOut:    bytesOut,
		stepsSent:   stepsSent,
		cancelCount: cancelCount,
	}
}

func (m *instrumentation) recordIn(ctx context.Context, connID string, n int) {
	attr := attribute.String("connection_id", connID)
	m.framesIn.Add(ctx, 1, metric.WithAttributes(attr))
	m.bytesIn.Add(ctx, int64(n), metric.WithAttributes(attr))
}

func (m *instrumentation) recordOut(ctx context.Context, connID string, n int) {
	attr := attribute.String("connection_id", connID)
	m.framesOut.Add(ctx, 1, metric.WithAttributes(attr))
	m.bytesOut.Add(ctx, int64(n), metric.WithAttributes(attr))
}

func (m *instrumentation) recordStep(ctx context.Context, connID, streamID string) {
	m.stepsSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("connection_id", connID),
		attribute.String("stream_id", streamID),
	))
}

func (m *instrumentation) recordCancel(ctx context.Context, connID, streamID string) {
	m.cancelCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("connection_id", connID),
		attribute.String("stream_id", streamID),
	))
}
