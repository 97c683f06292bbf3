package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/eveview/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a connected RedisCache.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	rc, err := cache.NewRedisCache(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return rc
}

// --- Ping ---

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	err := rc.Ping(context.Background())
	assert.NoError(t, err)
}

// --- result pages ---

func TestResultPage_StoredUntilTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := cache.ResultPageKey("scope-"+uuid.NewString()[:8], 0, "q1")

	require.NoError(t, rc.Set(ctx, key, []byte("encoded page"), time.Second))

	val, found, err := rc.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("encoded page"), val)

	time.Sleep(1500 * time.Millisecond)

	val, found, err = rc.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestResultPage_GenerationBumpHidesOldPages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	scope := "scope-" + uuid.NewString()[:8]
	genKey := cache.ResultGenerationKey(scope)

	gen, err := rc.Counter(ctx, genKey)
	require.NoError(t, err)
	require.NoError(t, rc.Set(ctx, cache.ResultPageKey(scope, gen, "q1"), []byte("old"), time.Minute))

	bumped, err := rc.IncrWithExpiry(ctx, genKey, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, gen+1, bumped)

	_, found, err := rc.Get(ctx, cache.ResultPageKey(scope, bumped, "q1"))
	require.NoError(t, err)
	assert.False(t, found, "a new generation must not see pages cached before the bump")

	_, found, err = rc.Get(ctx, cache.ResultPageKey(scope, gen, "q1"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestDelete_UndecodablePage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := cache.ResultPageKey("scope", 0, "broken")

	require.NoError(t, rc.Set(ctx, key, []byte{0xc1}, 10*time.Second))
	require.NoError(t, rc.Delete(ctx, key))

	_, found, err := rc.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, rc.Delete(ctx, key), "deleting a missing page is not an error")
}

// --- IncrWithExpiry ---

func TestIncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("ev_" + uuid.NewString()[:8])

	val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)

	val, err = rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), val)

	val, err = rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(3), val)
}

func TestIncrWithExpiry_Expires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := cache.RateLimitKey("ip:" + uuid.NewString()[:8])

	_, err := rc.IncrWithExpiry(ctx, key, 1*time.Second)
	require.NoError(t, err)

	time.Sleep(1500 * time.Millisecond)

	// A new window starts counting from 1
	val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

// --- Counter ---

func TestCounter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := cache.ResultGenerationKey(uuid.NewString()[:8])

	val, err := rc.Counter(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), val)

	_, err = rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)

	val, err = rc.Counter(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

// --- Cache Key Builders ---

func TestResultPageKey(t *testing.T) {
	key := cache.ResultPageKey("0a1b2c3d4e5f6071", 3, "abc123hash")
	assert.Equal(t, "results:page:0a1b2c3d4e5f6071:3:abc123hash", key)
}

func TestResultGenerationKey(t *testing.T) {
	key := cache.ResultGenerationKey("0a1b2c3d4e5f6071")
	assert.Equal(t, "results:gen:0a1b2c3d4e5f6071", key)
}

func TestRateLimitKey(t *testing.T) {
	key := cache.RateLimitKey("ev_abcd1234")
	assert.Equal(t, "ratelimit:ev_abcd1234", key)
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	keys := map[string]bool{
		cache.ResultPageKey("scope", 0, "hash1"): true,
		cache.ResultPageKey("scope", 1, "hash1"): true,
		cache.ResultGenerationKey("scope"):       true,
		cache.RateLimitKey("scope"):              true,
	}
	assert.Len(t, keys, 4, "all keys should be unique")
}
