package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "stagehand:promotion-lease:"

// releaseScript deletes the lease only if the caller still holds it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLease implements Lease with SET NX + TTL.
type RedisLease struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLease connects to redis and returns a lease with the default TTL.
func NewRedisLease(ctx context.Context, redisURL string) (*RedisLease, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisLease{client: client, ttl: DefaultTTL}, nil
}

func (l *RedisLease) Acquire(ctx context.Context, environmentID, promotionID string) error {
	acquired, err := l.client.SetNX(ctx, keyPrefix+environmentID, promotionID, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire lease for %s: %w", environmentID, err)
	}

	if !acquired {
		return fmt.Errorf("%w: %s", ErrHeld, environmentID)
	}

	return nil
}

func (l *RedisLease) Release(ctx context.Context, environmentID, promotionID string) error {
	err := l.client.Eval(ctx, releaseScript, []string{keyPrefix + environmentID}, promotionID).Err()
	if err != nil {
		return fmt.Errorf("failed to release lease for %s: %w", environmentID, err)
	}

	return nil
}
