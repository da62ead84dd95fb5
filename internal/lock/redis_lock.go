package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript удаляет ключ, только если он все еще принадлежит нашему токену.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker - блокировки между несколькими экземплярами сервиса.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

// NewRedisLocker создает RedisLocker. ttl ограничивает время жизни блокировки,
// если процесс упал и не освободил ее.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, retry: 25 * time.Millisecond, logger: logger}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("failed to acquire redis lock %s: %w", key, err)
		}
		if ok {
			l.logger.DebugContext(ctx, "Redis lock acquired", slog.String("key", key))
			return l.unlockFunc(key, token), nil
		}

		select {
		case <-ctx.Done():
			l.logger.WarnContext(ctx, "Redis lock wait cancelled", slog.String("key", key))
			return nil, ErrTimeout
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlockFunc(key, token string) Unlock {
	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release redis lock %s: %w", key, err)
		}
		if n == 0 {
			l.logger.WarnContext(ctx, "Redis lock expired before release", slog.String("key", key))
		}
		return nil
	}
}
