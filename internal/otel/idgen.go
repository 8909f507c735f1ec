package otel

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// FixedTraceIDGenerator puts every new trace under one trace ID, so all tasks
// of an export land in the trace chosen on the command line.
type FixedTraceIDGenerator struct {
	traceID trace.TraceID

	mu   sync.Mutex
	last uint64
}

var _ sdktrace.IDGenerator = (*FixedTraceIDGenerator)(nil)

// NewFixedTraceIDGenerator creates a generator for traceID.
func NewFixedTraceIDGenerator(traceID trace.TraceID) *FixedTraceIDGenerator {
	return &FixedTraceIDGenerator{traceID: traceID}
}

// NewIDs returns the fixed trace ID and a fresh span ID.
func (g *FixedTraceIDGenerator) NewIDs(ctx context.Context) (trace.TraceID, trace.SpanID) {
	return g.traceID, g.NewSpanID(ctx, g.traceID)
}

// NewSpanID returns a random, non-zero span ID that differs from the previous one.
func (g *FixedTraceIDGenerator) NewSpanID(_ context.Context, _ trace.TraceID) trace.SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sid trace.SpanID
	for {
		_, _ = rand.Read(sid[:]) //nolint:errcheck // crypto/rand.Read never returns an error
		v := binary.BigEndian.Uint64(sid[:])
		if v != 0 && v != g.last {
			g.last = v
			return sid
		}
	}
}
