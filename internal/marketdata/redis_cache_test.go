package marketdata

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// setupRedis starts a throwaway Redis container and returns a connected client
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisCache(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	start, end := date("2025-08-11"), date("2025-08-19")

	t.Run("caches non-empty windows", func(t *testing.T) {
		upstream := &stubFetcher{bars: []models.PriceBar{bar("BPCL", "2025-08-14", 100), bar("BPCL", "2025-08-18", 105.5)}}
		rec := &countingRecorder{}
		cache := NewRedisCache(client, upstream, time.Minute, zerolog.Nop(), rec)

		first, err := cache.FetchBars(ctx, "BPCL", start, end)
		require.NoError(t, err)
		second, err := cache.FetchBars(ctx, "BPCL", start, end)
		require.NoError(t, err)

		assert.Equal(t, 1, upstream.calls)
		assert.Equal(t, 1, rec.results["redis:miss"])
		assert.Equal(t, 1, rec.results["redis:hit"])
		require.Len(t, second, len(first))
		assert.Equal(t, "105.5", second[1].Close.Decimal.String())
		assert.True(t, second[1].SameDay(date("2025-08-18")))

		ttl, err := client.TTL(ctx, "earnings:bars:BPCL:2025-08-11:2025-08-19").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("empty windows are not cached", func(t *testing.T) {
		upstream := &stubFetcher{}
		cache := NewRedisCache(client, upstream, time.Minute, zerolog.Nop(), nil)

		_, err := cache.FetchBars(ctx, "EMPTY", start, end)
		require.NoError(t, err)
		_, err = cache.FetchBars(ctx, "EMPTY", start, end)
		require.NoError(t, err)
		assert.Equal(t, 2, upstream.calls)
	})

	t.Run("windows reaching the current session are not cached", func(t *testing.T) {
		upstream := &stubFetcher{bars: []models.PriceBar{bar("IOC", "2025-08-14", 140), bar("IOC", "2025-08-18", 141)}}
		cache := NewRedisCache(client, upstream, time.Minute, zerolog.Nop(), nil,
			WithCacheSettlement(settledAt("2025-08-18 11:30")))

		_, err := cache.FetchBars(ctx, "IOC", start, end)
		require.NoError(t, err)
		_, err = cache.FetchBars(ctx, "IOC", start, end)
		require.NoError(t, err)
		assert.Equal(t, 2, upstream.calls)

		exists, err := client.Exists(ctx, "earnings:bars:IOC:2025-08-11:2025-08-19").Result()
		require.NoError(t, err)
		assert.Zero(t, exists)

		// A window that ended before today is cached
		_, err = cache.FetchBars(ctx, "IOC", start, date("2025-08-18"))
		require.NoError(t, err)
		_, err = cache.FetchBars(ctx, "IOC", start, date("2025-08-18"))
		require.NoError(t, err)
		assert.Equal(t, 3, upstream.calls)
	})

	t.Run("invalidate drops symbol keys", func(t *testing.T) {
		upstream := &stubFetcher{bars: []models.PriceBar{bar("ONGC", "2025-08-14", 240), bar("ONGC", "2025-08-18", 244)}}
		cache := NewRedisCache(client, upstream, time.Minute, zerolog.Nop(), nil)

		_, err := cache.FetchBars(ctx, "ONGC", start, end)
		require.NoError(t, err)
		_, err = cache.FetchBars(ctx, "ONGC", date("2025-08-12"), end)
		require.NoError(t, err)

		require.NoError(t, cache.Invalidate(ctx, "ONGC"))
		keys, err := client.Keys(ctx, "earnings:bars:ONGC:*").Result()
		require.NoError(t, err)
		assert.Empty(t, keys)

		_, err = cache.FetchBars(ctx, "ONGC", start, end)
		require.NoError(t, err)
		assert.Equal(t, 3, upstream.calls)
	})
}

func TestRedisCacheDegradesWhenUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	upstream := &stubFetcher{bars: []models.PriceBar{bar("BPCL", "2025-08-14", 100)}}
	rec := &countingRecorder{}
	cache := NewRedisCache(client, upstream, 0, zerolog.Nop(), rec)

	bars, err := cache.FetchBars(context.Background(), "BPCL", date("2025-08-11"), date("2025-08-19"))
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 1, rec.results["redis:error"])
}
