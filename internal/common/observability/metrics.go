package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability owns the OpenTelemetry meter used for dispatch outcomes and
// the tracer for dispatch spans.
type Observability struct {
	meterProvider    *metric.MeterProvider
	tracerProvider   *sdktrace.TracerProvider
	tracer           trace.Tracer
	dispatchCounter  otelmetric.Int64Counter
	dispatchDuration otelmetric.Float64Histogram
	recipients       otelmetric.Int64Counter
}

type settings struct {
	processors []sdktrace.SpanProcessor
	registerer promclient.Registerer
}

type Option func(*settings)

// WithSpanProcessor attaches a span processor to the tracer provider.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(s *settings) { s.processors = append(s.processors, sp) }
}

// WithRegisterer registers the metric exporter on reg instead of the default
// Prometheus registry.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(s *settings) { s.registerer = reg }
}

// New installs an SDK tracer provider and a Prometheus-backed meter provider
// as the global providers. On exporter failure the metric recorders are
// no-ops; tracing still works.
func New(serviceName string, opts ...Option) *Observability {
	var st settings
	for _, opt := range opts {
		opt(&st)
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, sp := range st.processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	o := &Observability{tracerProvider: tp, tracer: tp.Tracer(serviceName)}

	var exporterOpts []otelprom.Option
	if st.registerer != nil {
		exporterOpts = append(exporterOpts, otelprom.WithRegisterer(st.registerer))
	}
	exporter, err := otelprom.New(exporterOpts...)
	if err != nil {
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(provider)
	o.meterProvider = provider

	meter := provider.Meter(serviceName)
	o.dispatchCounter, _ = meter.Int64Counter(
		"push.dispatches",
		otelmetric.WithDescription("Push dispatches by outcome"),
	)
	o.dispatchDuration, _ = meter.Float64Histogram(
		"push.dispatch.duration",
		otelmetric.WithDescription("Submit call duration"),
		otelmetric.WithUnit("ms"),
	)
	o.recipients, _ = meter.Int64Counter(
		"push.recipients",
		otelmetric.WithDescription("Device tokens by delivery result"),
	)
	return o
}

// Noop returns an instance that records nothing but still hands out spans
// from the global tracer.
func Noop() *Observability {
	return &Observability{tracer: otel.Tracer("noop")}
}

// StartSpan starts a span under ctx.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer("loyalty-admin")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordDispatch records one dispatch outcome with its per-token counts.
func (o *Observability) RecordDispatch(ctx context.Context, outcome string, duration time.Duration, success, failure int) {
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	if o.dispatchCounter != nil {
		o.dispatchCounter.Add(ctx, 1, attrs)
	}
	if o.dispatchDuration != nil {
		o.dispatchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if o.recipients != nil {
		o.recipients.Add(ctx, int64(success), otelmetric.WithAttributes(attribute.String("result", "success")))
		o.recipients.Add(ctx, int64(failure), otelmetric.WithAttributes(attribute.String("result", "failure")))
	}
}

// Shutdown flushes and stops both providers.
func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
