package messaging

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "traceparent", Value: []byte("old")}}}
	c := carrierFor(&msg)

	c.Set("traceparent", "new")
	c.Set("tracestate", "vendor=1")

	if got := c.Get("traceparent"); got != "new" {
		t.Errorf("expected traceparent new, got %q", got)
	}
	if got := c.Get("missing"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
	if len(msg.Headers) != 2 {
		t.Errorf("expected 2 headers on the message, got %d", len(msg.Headers))
	}
	if keys := c.Keys(); len(keys) != 2 {
		t.Errorf("expected 2 keys, got %v", keys)
	}
}

func TestHeaderCarrier_PropagatesTraceContext(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	prop := propagation.TraceContext{}
	var msg kafka.Message
	prop.Inject(trace.ContextWithSpanContext(context.Background(), parent), carrierFor(&msg))

	got := trace.SpanContextFromContext(prop.Extract(context.Background(), carrierFor(&msg)))
	if got.TraceID() != traceID || got.SpanID() != spanID {
		t.Errorf("expected span context %s/%s, got %s/%s", traceID, spanID, got.TraceID(), got.SpanID())
	}
}
