package observability

import (
	"context"
	"errors"
	"testing"
)

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.ServiceName != "depcheck" {
		t.Fatalf("expected service name 'depcheck', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{
		ServiceName: "test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestResolveSpan(t *testing.T) {
	ctx, span := StartResolveSpan(context.Background(), "abc", "https://www.arcgis.com")
	if span == nil || ctx == nil {
		t.Fatal("expected non-nil span and context")
	}
	RecordResolveResult(span, 3, 4, 1, 0)
	span.End()
}

func TestCatalogSpan(t *testing.T) {
	_, span := StartCatalogSpan(context.Background(), "item", "abc")
	if span == nil {
		t.Fatal("expected non-nil span")
	}
	RecordCatalogStatus(span, 200)
	span.End()
}

func TestExtractSpan(t *testing.T) {
	_, span := StartExtractSpan(context.Background(), "webmap", "abc")
	if span == nil {
		t.Fatal("expected non-nil span")
	}
	RecordExtractResult(span, 2, 1)
	span.End()
}

func TestRecordError(t *testing.T) {
	_, span := StartResolveSpan(context.Background(), "abc", "")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()
}
