package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKey(t *testing.T) {
	t.Run("identical inputs produce identical keys", func(t *testing.T) {
		a := PageKey("AAPL", 1, 100)
		b := PageKey("AAPL", 1, 100)
		assert.Equal(t, a, b)
		assert.Equal(t, "stocks:list:AAPL:1:100", a)
	})

	t.Run("differing inputs produce differing keys", func(t *testing.T) {
		all := []string{
			PageKey("AAPL", 1, 100),
			PageKey("AAPL", 2, 100),
			PageKey("AAPL", 1, 50),
			PageKey("MSFT", 1, 100),
			PageKey("", 1, 100),
			RangeKey("AAPL", "", ""),
			RangeKey("AAPL", "2024-01-01", ""),
			Key("latest", "AAPL"),
			Key("symbols"),
		}
		unique := map[string]struct{}{}
		for _, k := range all {
			unique[k] = struct{}{}
		}
		assert.Len(t, unique, len(all))
	})

	t.Run("absent parameters use the reserved literal", func(t *testing.T) {
		assert.Equal(t, "stocks:list:-:1:100", PageKey("", 1, 100))
		assert.Equal(t, "stocks:history:AAPL:-:-", RangeKey("AAPL", "", ""))
		assert.Equal(t, "stocks:history:AAPL:2024-01-01:-", RangeKey("AAPL", "2024-01-01", ""))
	})
}

func TestFetchWithoutBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable backend falls through to compute", func(t *testing.T) {
		// Port 1 refuses connections; every cache call fails fast.
		c := New("localhost:1", "", 0, testLogger())
		defer c.Close()

		computed := 0
		value, err := Fetch(ctx, c, Key("latest", "AAPL"), time.Minute, func() (string, error) {
			computed++
			return "fresh", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "fresh", value)
		assert.Equal(t, 1, computed)
	})

	t.Run("nil cache just computes", func(t *testing.T) {
		value, err := Fetch[int](ctx, nil, "unused", time.Minute, func() (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, value)
	})

	t.Run("compute errors pass through", func(t *testing.T) {
		c := New("localhost:1", "", 0, testLogger())
		defer c.Close()

		_, err := Fetch(ctx, c, "k", time.Minute, func() (string, error) {
			return "", assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func setupRedis(t *testing.T) *Cache {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
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

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	c := New(endpoint, "", 0, testLogger())
	t.Cleanup(func() { c.Close() })

	if err := c.Health(ctx); err != nil {
		t.Fatalf("redis not reachable: %v", err)
	}
	return c
}

func TestFetchWithRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	c := setupRedis(t)

	type payload struct {
		Symbol string `json:"symbol"`
		Close  string `json:"close"`
	}

	t.Run("second call is served from cache without compute", func(t *testing.T) {
		key := Key("latest", "AAPL")
		computed := 0
		compute := func() (payload, error) {
			computed++
			return payload{Symbol: "AAPL", Close: "177.25"}, nil
		}

		first, err := Fetch(ctx, c, key, time.Minute, compute)
		require.NoError(t, err)
		second, err := Fetch(ctx, c, key, time.Minute, compute)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, computed)
	})

	t.Run("entries expire after the TTL", func(t *testing.T) {
		key := Key("latest", "MSFT")
		computed := 0
		compute := func() (payload, error) {
			computed++
			return payload{Symbol: "MSFT"}, nil
		}

		_, err := Fetch(ctx, c, key, 100*time.Millisecond, compute)
		require.NoError(t, err)

		time.Sleep(200 * time.Millisecond)

		_, err = Fetch(ctx, c, key, 100*time.Millisecond, compute)
		require.NoError(t, err)
		assert.Equal(t, 2, computed)
	})

	t.Run("a corrupt entry is a miss and gets overwritten", func(t *testing.T) {
		key := Key("latest", "NVDA")

		rdb := redis.NewClient(&redis.Options{Addr: c.rdb.Options().Addr})
		defer rdb.Close()
		require.NoError(t, rdb.Set(ctx, key, "{not json", time.Minute).Err())

		computed := 0
		value, err := Fetch(ctx, c, key, time.Minute, func() (payload, error) {
			computed++
			return payload{Symbol: "NVDA"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "NVDA", value.Symbol)
		assert.Equal(t, 1, computed)

		// The corrupt bytes were replaced by the fresh encoding.
		stored, err := rdb.Get(ctx, key).Result()
		require.NoError(t, err)
		assert.JSONEq(t, `{"symbol":"NVDA","close":""}`, stored)
	})

	t.Run("a compute error is not cached", func(t *testing.T) {
		key := Key("latest", "TSLA")

		_, err := Fetch(ctx, c, key, time.Minute, func() (payload, error) {
			return payload{}, assert.AnError
		})
		require.Error(t, err)

		exists, err := c.rdb.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists)
	})
}
