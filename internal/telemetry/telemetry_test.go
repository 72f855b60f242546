package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Init(ctx, "", "bindex", "test", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
}

func TestScopeHelpers(t *testing.T) {
	// Without Init the helpers hand out the otel no-op providers, so
	// instrumented code can always record unconditionally.
	assert.NotNil(t, Tracer("bindex/test"))

	counter, err := Meter("bindex/test").Int64Counter("bindex.test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}
