package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(ctx context.Context, redisURL string) (*RedisClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// AddActiveUser adds a user to the active users set.
func (r *RedisClient) AddActiveUser(ctx context.Context, username string) error {
	return r.client.SAdd(ctx, "active_users", username).Err()
}

// RemoveActiveUser removes a user from the active users set.
func (r *RedisClient) RemoveActiveUser(ctx context.Context, username string) error {
	return r.client.SRem(ctx, "active_users", username).Err()
}

// ListActiveUsers retrieves all active users.
func (r *RedisClient) ListActiveUsers(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, "active_users").Result()
}

// IsUserActive checks if a user is in the active users set.
func (r *RedisClient) IsUserActive(ctx context.Context, username string) (bool, error) {
	return r.client.SIsMember(ctx, "active_users", username).Result()
}

// PushRecent appends an entry to a room's recent-history list and trims it
// to the newest max entries.
func (r *RedisClient) PushRecent(ctx context.Context, key string, value []byte, max int) error {
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, value)
	pipe.LTrim(ctx, key, int64(-max), -1)
	_, err := pipe.Exec(ctx)
	return err
}

// ListRecent returns all entries of a recent-history list, oldest first.
func (r *RedisClient) ListRecent(ctx context.Context, key string) ([]string, error) {
	return r.client.LRange(ctx, key, 0, -1).Result()
}

// FlushAll clears the entire database. Test helper.
func (r *RedisClient) FlushAll(ctx context.Context) error {
	return r.client.FlushAll(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}
