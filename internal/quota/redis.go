package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix = "notionrag:usage:"
	// counters outlive their day so a late request near midnight still sees them
	redisTTL = 48 * time.Hour
)

// RedisStore keeps one counter per user and day.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client), nil
}

func redisKey(user, day string) string { return redisPrefix + user + ":" + day }

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context, user, day string) (int, error) {
	n, err := s.client.Get(ctx, redisKey(user, day)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage: %w", err)
	}
	return n, nil
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, user, day string) (int, error) {
	key := redisKey(user, day)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, redisTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}
	return int(incr.Val()), nil
}

// decrScript decrements a counter without taking it below zero.
var decrScript = redis.NewScript(`
local n = tonumber(redis.call("GET", KEYS[1]) or "0")
if n <= 0 then
	return 0
end
return redis.call("DECR", KEYS[1])
`)

// Decrement implements Store.
func (s *RedisStore) Decrement(ctx context.Context, user, day string) (int, error) {
	n, err := decrScript.Run(ctx, s.client, []string{redisKey(user, day)}).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to decrement usage: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *RedisStore) Close() error { return s.client.Close() }
