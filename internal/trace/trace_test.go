package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpanDisabled(t *testing.T) {
	if err := Init(false, "test"); err != nil {
		t.Fatalf("init: %v", err)
	}
	ctx := context.Background()
	got, span := StartSpan(ctx, "noop", attribute.Int("n", 1))
	defer span.End()

	if got != ctx {
		t.Fatal("expected the original context when tracing is disabled")
	}
	if span.SpanContext().IsValid() {
		t.Fatal("expected an invalid span context when tracing is disabled")
	}
	if Enabled() {
		t.Fatal("expected tracing to report disabled")
	}
}

func TestExportWritesSpanAttributes(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, "test"); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !Enabled() {
		t.Fatal("expected tracing to be enabled")
	}

	_, span := StartSpan(context.Background(), "discovery.run", attribute.Float64("discovery.significance", 0.01))
	if !span.SpanContext().IsValid() {
		t.Fatal("expected a recording span")
	}
	span.End()

	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if Enabled() {
		t.Fatal("expected tracing off after shutdown")
	}
	out := buf.String()
	for _, want := range []string{"discovery.run", "discovery.significance", serviceName} {
		if !strings.Contains(out, want) {
			t.Errorf("exported spans missing %q", want)
		}
	}
}
