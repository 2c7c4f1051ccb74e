package redis

import (
	"BPIApi/pkg/logger"
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisService represents the Redis service
type RedisService struct {
	client *redis.Client // Keep the field unexported
}

// Client returns the Redis client
func (r *RedisService) Client() *redis.Client {
	return r.client
}

// NewRedisService creates a new instance of the Redis service
func NewRedisService(redisAddr string, redisPassword string) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       0,
	})

	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		logger.Fatal("%v", err)
	}

	logger.Info("Connected to Redis")

	return &RedisService{
		client: client,
	}
}

// NewWithClient wraps an existing client, used when the caller manages the connection.
func NewWithClient(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

// SetKey sets a key-value pair in Redis
func (r *RedisService) SetKey(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := r.client.Set(ctx, key, value, expiration).Err()
	if err != nil {
		return logger.WrapError(err, "")
	}
	return nil
}

// GetKey retrieves the value of a key from Redis
func (r *RedisService) GetKey(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", logger.WrapError(err, "")
	}
	return val, nil
}

// DeleteKey removes a key from Redis
func (r *RedisService) DeleteKey(ctx context.Context, key string) error {
	err := r.client.Del(ctx, key).Err()
	if err != nil {
		return logger.WrapError(err, "")
	}
	return nil
}

// SetIfAbsent stores key only when it does not exist yet and reports whether
// this call created it.
func (r *RedisService) SetIfAbsent(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	created, err := r.client.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		return false, logger.WrapError(err, "")
	}
	return created, nil
}

// PushRecent prepends value to a capped list holding the newest keep entries.
func (r *RedisService) PushRecent(ctx context.Context, key string, value string, keep int64) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, keep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return logger.WrapError(err, "")
	}
	return nil
}

// Recent returns up to limit newest entries pushed with PushRecent.
func (r *RedisService) Recent(ctx context.Context, key string, limit int64) ([]string, error) {
	vals, err := r.client.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, logger.WrapError(err, "")
	}
	return vals, nil
}
