// Package otel exports query lifecycle events as OpenTelemetry spans
// over OTLP/gRPC. Telemetry is entirely opt-in: without an endpoint no
// tracer provider is installed and the event subscriptions are never
// registered.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/trustfall/trustfall-go/internal/eventbus"
	"github.com/trustfall/trustfall-go/internal/events"
	"github.com/trustfall/trustfall-go/internal/runid"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured. The returned function
// flushes and shuts the exporter down.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("trustfall")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer     trace.Tracer
	querySpans sync.Map // run id -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.QueryStart) {
		rid, _ := runid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "query.execute")
		span.SetAttributes(attribute.String("trustfall.root_name", e.RootName))
		s.querySpans.Store(rid, span)
	})
	eventbus.Subscribe(func(ctx context.Context, e events.QueryFinish) {
		rid, _ := runid.FromContext(ctx)
		v, ok := s.querySpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(attribute.Int("trustfall.rows", e.Rows))
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})
}
