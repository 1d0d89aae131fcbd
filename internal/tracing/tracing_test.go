package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupNoneInstallsNothing(t *testing.T) {
	tp, err := Setup(context.Background(), Config{Exporter: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestSetupRejectsUnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Config{Exporter: "zipkin"}, nil)
	assert.ErrorContains(t, err, "zipkin")
}

func TestSetupStdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	tp, err := Setup(ctx, Config{
		ServiceName: "dental-clinic-server",
		Environment: "test",
		Exporter:    "stdout",
		SampleRatio: 1,
	}, &buf)
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.Same(t, tp, otel.GetTracerProvider())

	_, span := otel.Tracer("tracing-test").Start(ctx, "appointments.Create")
	span.End()
	require.NoError(t, tp.Shutdown(ctx))

	out := buf.String()
	assert.Contains(t, out, "appointments.Create")
	assert.Contains(t, out, "dental-clinic-server")
}
