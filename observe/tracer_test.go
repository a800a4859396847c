package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestComputeMeta_SpanName verifies the deterministic span name format.
func TestComputeMeta_SpanName(t *testing.T) {
	meta := ComputeMeta{
		Name: "post.load",
	}

	expected := "cache.compute.post.load"
	if got := meta.SpanName(); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

// TestTracer_SpanAttributes verifies all attributes are present on span.
func TestTracer_SpanAttributes(t *testing.T) {
	// Set up in-memory span recorder
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := ComputeMeta{
		Name:    "post.load",
		Key:     "tagcache:post:a1b2c3d4e5f60718",
		Profile: "hours",
		Tags:    []string{"posts", "post:42"},
		Trigger: "sync",
	}

	ctx, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)
	_ = ctx // Suppress unused warning

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]

	// Verify span name
	if s.Name() != "cache.compute.post.load" {
		t.Errorf("expected span name 'cache.compute.post.load', got %q", s.Name())
	}

	// Verify attributes
	attrs := s.Attributes()
	attrMap := make(map[string]attribute.Value)
	for _, a := range attrs {
		attrMap[string(a.Key)] = a.Value
	}

	// Required attributes
	if v, ok := attrMap["cache.compute"]; !ok || v.AsString() != "post.load" {
		t.Errorf("expected cache.compute='post.load', got %v", v)
	}
	if v, ok := attrMap["cache.error"]; !ok || v.AsBool() != false {
		t.Errorf("expected cache.error=false, got %v", v)
	}

	// Optional attributes
	if v, ok := attrMap["cache.key"]; !ok || v.AsString() != "tagcache:post:a1b2c3d4e5f60718" {
		t.Errorf("expected cache.key='tagcache:post:a1b2c3d4e5f60718', got %v", v)
	}
	if v, ok := attrMap["cache.profile"]; !ok || v.AsString() != "hours" {
		t.Errorf("expected cache.profile='hours', got %v", v)
	}
	if v, ok := attrMap["cache.trigger"]; !ok || v.AsString() != "sync" {
		t.Errorf("expected cache.trigger='sync', got %v", v)
	}
	if v, ok := attrMap["cache.tags"]; !ok {
		t.Error("expected cache.tags attribute")
	} else {
		tags := v.AsStringSlice()
		if len(tags) != 2 || tags[0] != "posts" || tags[1] != "post:42" {
			t.Errorf("expected cache.tags=[posts post:42], got %v", tags)
		}
	}
}

// TestTracer_SpanAttributesMinimal verifies only required attributes when minimal meta.
func TestTracer_SpanAttributesMinimal(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := ComputeMeta{
		Name: "feed.render",
	}

	ctx, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)
	_ = ctx

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	attrs := s.Attributes()
	attrMap := make(map[string]attribute.Value)
	for _, a := range attrs {
		attrMap[string(a.Key)] = a.Value
	}

	// Required attributes should be present
	if _, ok := attrMap["cache.compute"]; !ok {
		t.Error("expected cache.compute attribute")
	}
	if _, ok := attrMap["cache.error"]; !ok {
		t.Error("expected cache.error attribute")
	}

	// Optional attributes should NOT be present when empty
	if v, ok := attrMap["cache.key"]; ok && v.AsString() != "" {
		t.Errorf("expected no cache.key, got %v", v)
	}
	if v, ok := attrMap["cache.profile"]; ok && v.AsString() != "" {
		t.Errorf("expected no cache.profile, got %v", v)
	}
	if v, ok := attrMap["cache.trigger"]; ok && v.AsString() != "" {
		t.Errorf("expected no cache.trigger, got %v", v)
	}
	if _, ok := attrMap["cache.tags"]; ok {
		t.Error("expected no cache.tags attribute")
	}
}

// TestTracer_ContextPropagation verifies parent span is propagated.
func TestTracer_ContextPropagation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := ComputeMeta{Name: "post.load"}

	// Create parent span
	parentCtx, parentSpan := tracer.Start(context.Background(), "parent")

	// Create child span through our tracer
	childCtx, childSpan := tr.StartSpan(parentCtx, meta)
	tr.EndSpan(childSpan, nil)
	parentSpan.End()
	_ = childCtx

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	// Find the child span (the one with cache.compute prefix)
	var child sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == "cache.compute.post.load" {
			child = s
			break
		}
	}
	if child == nil {
		t.Fatal("child span not found")
	}

	// Verify parent-child relationship
	if child.Parent().TraceID() != parentSpan.SpanContext().TraceID() {
		t.Error("child span should have same trace ID as parent")
	}
	if !child.Parent().SpanID().IsValid() {
		t.Error("child span should have valid parent span ID")
	}
}

// TestTracer_ErrorRecording verifies error sets span status and attribute.
func TestTracer_ErrorRecording(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := tp.Tracer("test")

	tr := &tracerImpl{tracer: tracer}
	meta := ComputeMeta{Name: "post.load"}

	ctx, span := tr.StartSpan(context.Background(), meta)
	testErr := errors.New("origin unreachable")
	tr.EndSpan(span, testErr)
	_ = ctx

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]

	// Verify error status
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status().Code)
	}

	// Verify cache.error attribute
	attrs := s.Attributes()
	var computeError bool
	for _, a := range attrs {
		if string(a.Key) == "cache.error" {
			computeError = a.Value.AsBool()
			break
		}
	}
	if !computeError {
		t.Error("expected cache.error=true")
	}
}
