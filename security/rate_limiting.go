package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter caps how often a caller may hit a sensitive operation
// (register, check-in) using a fixed per-window Redis counter. It fails
// open: if Redis is unreachable the request is allowed through.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		redis:  redisClient,
		limit:  int64(limit),
		window: window,
	}
}

// Allow reports whether one more attempt is permitted for key within
// the scope's current window.
func (r *RateLimiter) Allow(ctx context.Context, scope, key string) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%s", scope, key)

	count, err := r.redis.Incr(ctx, bucket).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		r.redis.Expire(ctx, bucket, r.window)
	}

	return count <= r.limit, nil
}
