package observability

import (
	"context"
	"testing"

	"storefront/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitTracing_DisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "test", zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_Enabled(t *testing.T) {
	cfg := config.TracingConfig{
		Enabled:      true,
		Endpoint:     "localhost:4318",
		ServiceName:  "storefront-test",
		SamplerRatio: 1,
	}

	shutdown, err := InitTracing(context.Background(), cfg, "test", zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Nothing was recorded, so shutdown does not need the collector
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestSamplerRatio(t *testing.T) {
	assert.Equal(t, 0.0, SamplerRatio(-1))
	assert.Equal(t, 1.0, SamplerRatio(3))
	assert.Equal(t, 0.25, SamplerRatio(0.25))
}

func TestExporterOptions(t *testing.T) {
	assert.Empty(t, exporterOptions(""))
	assert.Len(t, exporterOptions("collector:4318"), 2)
	assert.Len(t, exporterOptions("https://collector.example.com/v1/traces"), 1)
}
