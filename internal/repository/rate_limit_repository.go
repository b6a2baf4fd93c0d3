package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/campus-connect/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RateLimitRepository interface {
	// CheckRateLimit counts one hit for key and reports whether it is within
	// requests per window.
	CheckRateLimit(ctx context.Context, key string, requests int, window time.Duration) (bool, error)
}

type redisRateLimitRepository struct {
	client redis.UniversalClient
}

func NewRedisRateLimitRepository(client redis.UniversalClient) RateLimitRepository {
	return &redisRateLimitRepository{client: client}
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum)
}

func (r *redisRateLimitRepository) CheckRateLimit(ctx context.Context, key string, requests int, window time.Duration) (bool, error) {
	// Hash the key for privacy
	redisKey := "ratelimit:" + hashKey(key)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		// On redis error, allow the request (fail open)
		logger.WarnContext(ctx, "Rate limit check failed", "error", err)
		return true, nil
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			logger.WarnContext(ctx, "Failed to set rate limit window", "error", err)
		}
	}

	return count <= int64(requests), nil
}

type window struct {
	count int
	reset time.Time
}

// MemoryRateLimitRepository is a fixed-window limiter for single-instance use.
type MemoryRateLimitRepository struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryRateLimitRepository() *MemoryRateLimitRepository {
	return &MemoryRateLimitRepository{windows: make(map[string]*window), now: time.Now}
}

func (r *MemoryRateLimitRepository) CheckRateLimit(_ context.Context, key string, requests int, d time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for k, w := range r.windows {
		if !now.Before(w.reset) {
			delete(r.windows, k)
		}
	}

	k := hashKey(key)
	w, ok := r.windows[k]
	if !ok {
		w = &window{reset: now.Add(d)}
		r.windows[k] = w
	}
	w.count++
	return w.count <= requests, nil
}
