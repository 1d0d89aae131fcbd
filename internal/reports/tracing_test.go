package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"dental-clinic-server/internal/store/storetest"
)

func TestReportSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	backend := storetest.NewMemory()
	svc := NewService(backend, Options{
		Logger:  zerolog.Nop(),
		Tracing: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)),
	})
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Get(ctx, code)
	require.NoError(t, err)

	backend.FailCreate = func(string, map[string]interface{}) error { return errors.New("db down") }
	_, err = svc.Create(ctx, validInput())
	require.Error(t, err)

	ended := rec.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "reports.Create", ended[0].Name())
	assert.Equal(t, "reports.Get", ended[1].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[2].Status().Code)
}
