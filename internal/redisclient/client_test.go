package redisclient

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/attendance/backend/internal/config"
)

func TestNewAndPing(t *testing.T) {
	server := miniredis.RunT(t)

	client := New(config.RedisConfig{URL: "redis://" + server.Addr() + "/0", PoolSize: 4})
	defer client.Close()
	require.NoError(t, Ping(context.Background(), client))

	bare := New(config.RedisConfig{URL: server.Addr(), DB: 2})
	defer bare.Close()
	require.Equal(t, 2, bare.Options().DB)
	require.NoError(t, Ping(context.Background(), bare))
}
