package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_InstallsTracerProvider(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	o := New("obs-test", WithSpanProcessor(rec), WithRegisterer(prometheus.NewRegistry()))
	t.Cleanup(o.Shutdown)

	_, span := otel.Tracer("global").Start(context.Background(), "via-global")
	span.End()
	_, span = o.StartSpan(context.Background(), "via-observability")
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "via-global", spans[0].Name())
	assert.Equal(t, "via-observability", spans[1].Name())
	assert.True(t, spans[1].SpanContext().IsValid())
}

func TestRecordDispatch_ExportsToRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New("obs-test", WithRegisterer(reg))
	t.Cleanup(o.Shutdown)

	o.RecordDispatch(context.Background(), "partially_failed", 15*time.Millisecond, 2, 1)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["push_dispatches_total"], "got %v", names)
	assert.True(t, names["push_recipients_total"], "got %v", names)
}

func TestNoop_RecordsNothing(t *testing.T) {
	o := Noop()
	assert.NotPanics(t, func() {
		o.RecordDispatch(context.Background(), "succeeded", time.Millisecond, 1, 0)
		_, span := o.StartSpan(context.Background(), "noop")
		span.End()
		o.Shutdown()
	})
}
