package testing

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// GetRedisClientAndCtx returns a client for REDIS_HOST when it is set,
// otherwise for a fresh redis container.
func GetRedisClientAndCtx(t *testing.T) (context.Context, *redis.Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	redisHost := os.Getenv("REDIS_HOST")
	redisPort := "6379"
	if redisHost == "" {
		redisHost = "localhost"
		redisPort = RunRedis(t, NewDockerPool(t))
	}
	t.Logf("using redis: [%s:%s]", redisHost, redisPort)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(redisHost, redisPort),
		Password: os.Getenv("REDIS_PASS"),
		DB:       0, // use default DB
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	require.Eventually(t, func() bool {
		return rdb.Ping(ctx).Err() == nil
	}, 20*time.Second, 250*time.Millisecond, "redis not reachable")

	return ctx, rdb
}
