package httpserver

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is a sliding-window rate limiter over a Redis sorted set per key.
type Limiter struct {
	client *redis.Client
	prefix string
}

func NewLimiter(client *redis.Client, prefix string) *Limiter {
	return &Limiter{client: client, prefix: prefix}
}

// Allow records one hit for the key and reports whether it stays within
// limit hits per window.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	now := time.Now()
	windowStart := now.Add(-window)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
	})
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return countCmd.Val() < int64(limit), nil
}

// RateLimit limits authenticated requests per user; anonymous requests fall
// back to the remote address. A nil limiter disables limiting. Redis errors
// fail open so a limiter outage never blocks traffic.
func RateLimit(l *Limiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if user := CurrentUser(r); user != nil {
				key = user.ID
			}

			ok, err := l.Allow(r.Context(), key, limit, window)
			if err != nil {
				log.Printf("rate limiter: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					StatusCode: http.StatusTooManyRequests,
					Message:    "too many messages, slow down",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
