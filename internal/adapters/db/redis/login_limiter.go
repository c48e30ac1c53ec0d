package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts sign-in attempts per identifier in fixed windows.
type LoginLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

func NewLoginLimiter(client redis.UniversalClient, limit int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, prefix: "login", limit: int64(limit), window: window}
}

// Allow registers one attempt for id and reports whether it is within quota.
func (l *LoginLimiter) Allow(ctx context.Context, id string) (bool, error) {
	key := l.prefix + ":" + id
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return n <= l.limit, nil
}

// Reset forgets the attempts of id, e.g. after a successful sign-in.
func (l *LoginLimiter) Reset(ctx context.Context, id string) error {
	return l.client.Del(ctx, l.prefix+":"+id).Err()
}

// NewClient connects to addr and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
