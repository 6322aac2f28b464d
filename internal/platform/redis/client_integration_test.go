//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"civic/internal/platform/config"
	"civic/pkg/testutil/containers"
)

func TestClient_HealthAgainstContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()

	c, err := New(ctx, config.RedisConfig{URL: rc.URL, PoolSize: 2})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NoError(t, c.Health(ctx))

	require.NoError(t, c.Close())
	require.ErrorContains(t, c.Health(ctx), "email code store")
}
