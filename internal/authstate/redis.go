package authstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores state tokens with a server-side TTL, so expiry works across
// process restarts and multiple instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func stateKey(token string) string {
	return fmt.Sprintf("authstate:%s", token)
}

func (r *Redis) Put(ctx context.Context, token, value string) error {
	if err := r.client.Set(ctx, stateKey(token), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store state token: %w", err)
	}
	return nil
}

func (r *Redis) Take(ctx context.Context, token string) (string, bool, error) {
	// GETDEL makes the consume atomic; a second Take loses the race.
	value, err := r.client.GetDel(ctx, stateKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to take state token: %w", err)
	}
	return value, true, nil
}
