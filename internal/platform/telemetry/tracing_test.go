package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracer(t *testing.T) {
	ctx := context.Background()

	shutdown, err := InitTracer(ctx, "timesheet-test", "none", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(ctx))

	shutdown, err = InitTracer(ctx, "timesheet-test", "stdout", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(ctx))

	_, err = InitTracer(ctx, "timesheet-test", "zipkin", "")
	assert.Error(t, err)
}
