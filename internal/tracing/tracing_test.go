package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/kenneth/metadata-decryptor/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestSetup_StdoutExporter(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	var buf bytes.Buffer
	cfg := config.TracingConfig{
		Enabled:        true,
		ServiceName:    "metadata-decryptor-test",
		ServiceVersion: "test",
		Exporter:       "stdout",
		SamplingRatio:  1.0,
	}

	shutdown, err := Setup(context.Background(), cfg, &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "crypto.Decrypt")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "crypto.Decrypt")
	assert.Contains(t, buf.String(), "metadata-decryptor-test")
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), config.TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	assert.Error(t, err)
}
