package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-reservation/config"
)

func TestSetupTracing_NoEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.OtelConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	// The exporter connects lazily, so no collector is needed to build it.
	shutdown, err := SetupTracing(context.Background(), config.OtelConfig{
		Endpoint:       "localhost:4318",
		Insecure:       true,
		ServiceName:    "order-reservation-test",
		ServiceVersion: "test",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
