package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReplayStore remembers consumed OTP nonces until the token expires, so a
// token verified on one replica is rejected on every other.
type RedisReplayStore struct {
	client redis.UniversalClient
}

func NewRedisReplayStore(client redis.UniversalClient) *RedisReplayStore {
	return &RedisReplayStore{client: client}
}

func (s *RedisReplayStore) Consume(ctx context.Context, nonce string, until time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	// PXAT, not EXAT: the key must outlive the token to the millisecond.
	err := s.client.Do(ctx, "SET", replayKey(nonce), 1, "NX", "PXAT", until.UnixMilli()).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func replayKey(nonce string) string {
	return "otp:used:" + nonce
}
