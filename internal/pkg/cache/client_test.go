package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopharma/internal/pkg/cache"
)

func TestRedisClient_GetSetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisClient(mr.Addr())
	require.NoError(t, err)
	defer client.Close()
	ctx := context.Background()

	_, err = client.Get(ctx, "tier:CUST-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, client.Set(ctx, "tier:CUST-1", "GOLD", time.Minute))
	val, err := client.Get(ctx, "tier:CUST-1")
	require.NoError(t, err)
	assert.Equal(t, "GOLD", val)

	require.NoError(t, client.Delete(ctx, "tier:CUST-1"))
	_, err = client.Get(ctx, "tier:CUST-1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestRedisClient_IncrSetsExpiryOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisClient(mr.Addr())
	require.NoError(t, err)
	ctx := context.Background()

	n, err := client.Incr(ctx, "rate-limit:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, time.Minute, mr.TTL("rate-limit:1.2.3.4"))

	mr.FastForward(30 * time.Second)
	n, err = client.Incr(ctx, "rate-limit:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 30*time.Second, mr.TTL("rate-limit:1.2.3.4"))

	mr.FastForward(31 * time.Second)
	assert.False(t, mr.Exists("rate-limit:1.2.3.4"))
}

func TestRedisClient_IncrRepairsCounterWithoutExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisClient(mr.Addr())
	require.NoError(t, err)

	// Contador deixado sem TTL por uma escrita interrompida.
	require.NoError(t, mr.Set("rate-limit:5.6.7.8", "100"))
	assert.Zero(t, mr.TTL("rate-limit:5.6.7.8"))

	n, err := client.Incr(context.Background(), "rate-limit:5.6.7.8", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(101), n)
	assert.Equal(t, time.Minute, mr.TTL("rate-limit:5.6.7.8"))

	mr.FastForward(61 * time.Second)
	assert.False(t, mr.Exists("rate-limit:5.6.7.8"))
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := cache.NewRedisClient(addr)
	assert.Error(t, err)
}
