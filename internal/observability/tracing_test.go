package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracing(t *testing.T) {
	t.Run("NoEndpoint", func(t *testing.T) {
		shutdown, err := InitTracing("storefront-test", "")
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))

		fields := otel.GetTextMapPropagator().Fields()
		assert.Contains(t, fields, "traceparent")
	})

	t.Run("Jaeger", func(t *testing.T) {
		shutdown, err := InitTracing("storefront-test", "http://localhost:14268/api/traces")
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})
}
