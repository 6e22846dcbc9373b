package lock

import (
	"context"
	"fmt"
	"time"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisTTL = 10 * time.Minute

// Deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client   redis.Cmdable
	ttl      time.Duration
	newToken func() string
}

// NewRedisLocker locks with SET NX PX. ttl bounds how long a crashed holder
// keeps the lock.
func NewRedisLocker(client redis.Cmdable, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisLocker{client: client, ttl: ttl, newToken: uuid.NewString}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, name string) (func(), error) {
	key := "lock:" + name
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			logger.L().Error("failed to release redis lock", zap.String("lock", name), zap.Error(err))
		}
	}
	return release, nil
}

// NewRedisClient connects and pings so a bad address fails at startup.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.L().Info("redis connection established", zap.String("addr", addr))
	return rdb, nil
}
