package output

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/mrzor/tasktree/internal/attributes"
	"github.com/mrzor/tasktree/internal/tasktree"
	"github.com/mrzor/tasktree/internal/timesync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RootContext is where exported spans attach: an optional trace ID and remote
// parent span, plus warnings to record on every root span.
type RootContext struct {
	TraceID  trace.TraceID
	ParentID trace.SpanID
	Warnings []attribute.KeyValue
}

// ResolveRootContext evaluates the trace and parent ID expressions for info.
// A parent without a trace ID gets a random trace ID so it can be referenced.
func ResolveRootContext(traceIDs *attributes.TraceIDEvaluator, parentIDs *attributes.ParentIDEvaluator, info *attributes.TraceInfo) (RootContext, error) {
	var root RootContext

	traceID, traceWarnings, err := traceIDs.EvaluateAndValidate(info)
	if err != nil {
		return RootContext{}, err
	}
	parentID, parentWarnings, err := parentIDs.EvaluateAndValidate(info)
	if err != nil {
		return RootContext{}, err
	}

	if parentID.IsValid() && !traceID.IsValid() {
		if _, err := rand.Read(traceID[:]); err != nil {
			return RootContext{}, fmt.Errorf("failed to generate trace ID: %w", err)
		}
	}

	root.TraceID = traceID
	root.ParentID = parentID
	root.Warnings = append(traceWarnings, parentWarnings...)
	return root, nil
}

// spanContext returns the remote parent of root spans, if any.
func (r RootContext) spanContext() trace.SpanContext {
	if !r.ParentID.IsValid() {
		return trace.SpanContext{}
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    r.TraceID,
		SpanID:     r.ParentID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
}

// OTELFormatter exports every task as an OpenTelemetry span.
type OTELFormatter struct {
	tracer    trace.Tracer
	converter *timesync.Converter
	evaluator *attributes.Evaluator
	root      RootContext
}

// NewOTELFormatter creates a new OTELFormatter.
func NewOTELFormatter(tracer trace.Tracer, converter *timesync.Converter, evaluator *attributes.Evaluator, root RootContext) *OTELFormatter {
	return &OTELFormatter{
		tracer:    tracer,
		converter: converter,
		evaluator: evaluator,
		root:      root,
	}
}

// Format starts and ends one span per task with the task's own timestamps.
// Spans of child tasks are children of their parent task's span.
func (f *OTELFormatter) Format(tree *tasktree.Tree) error {
	if err := normalized(tree); err != nil {
		return err
	}

	ctx := context.Background()
	if sc := f.root.spanContext(); sc.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, sc)
	}

	for _, root := range tree.Roots {
		if err := f.exportTask(ctx, tree, root); err != nil {
			return err
		}
	}
	return nil
}

func (f *OTELFormatter) exportTask(parent context.Context, tree *tasktree.Tree, task *tasktree.Node) error {
	startTime := f.converter.TraceToWallClock(tree.TraceTime(task.StartTime))
	endTime := f.converter.TraceToWallClock(tree.TraceTime(task.EndTime))

	ctx, span := f.tracer.Start(parent, task.Name(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(startTime),
		trace.WithAttributes(taskAttributes(task)...),
	)

	if task.Parent == nil && len(f.root.Warnings) > 0 {
		span.SetAttributes(f.root.Warnings...)
	}

	customAttrs, err := f.evaluator.EvaluateCustomAttributes(task)
	if err != nil {
		span.End(trace.WithTimestamp(endTime))
		return fmt.Errorf("failed to evaluate attributes for %q: %w", task.Name(), err)
	}
	if len(customAttrs) > 0 {
		span.SetAttributes(customAttrs...)
	}

	for _, child := range task.Children {
		if err := f.exportTask(ctx, tree, child); err != nil {
			span.End(trace.WithTimestamp(endTime))
			return err
		}
	}

	if task.Unterminated {
		span.SetStatus(codes.Error, "task did not end before the trace ended")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End(trace.WithTimestamp(endTime))
	return nil
}

func taskAttributes(task *tasktree.Node) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("task.group", task.Group.ID),
		attribute.Float64("task.duration_ms", task.Duration),
		attribute.Float64("task.self_time_ms", task.SelfTime),
		attribute.Bool("task.unterminated", task.Unterminated),
	}
	if task.Event.Cat != "" {
		attrs = append(attrs, attribute.String("task.category", task.Event.Cat))
	}
	if len(task.AttributableURLs) > 0 {
		attrs = append(attrs, attribute.StringSlice("task.attributable_urls", task.AttributableURLs))
	}
	return attrs
}
