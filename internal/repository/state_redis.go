package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	drepo "GoldenScan/internal/domain/repository"
)

// RedisStateStore persists scanner state in Redis as JSON documents.
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

// RedisStateConfig holds the Redis connection settings.
type RedisStateConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

// RedisStateOption configures the store.
type RedisStateOption func(*RedisStateConfig)

// WithRedisAddr sets the host and port.
func WithRedisAddr(host string, port int) RedisStateOption {
	return func(c *RedisStateConfig) {
		c.Host = host
		c.Port = port
	}
}

// WithRedisAuth sets the password and database index.
func WithRedisAuth(password string, db int) RedisStateOption {
	return func(c *RedisStateConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPrefix sets the key namespace.
func WithRedisPrefix(prefix string) RedisStateOption {
	return func(c *RedisStateConfig) {
		c.Prefix = prefix
	}
}

// NewRedisStateStore connects to Redis and verifies the connection.
func NewRedisStateStore(opts ...RedisStateOption) (*RedisStateStore, error) {
	cfg := &RedisStateConfig{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
		MinIdleConns: 5,
		Prefix:       "goldenscan",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStateStore{client: client, prefix: cfg.Prefix}, nil
}

var _ drepo.StateStore = (*RedisStateStore)(nil)

// Get loads the JSON document at key into dest. Returns false when the
// key is absent.
func (s *RedisStateStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, s.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value at key as a JSON document without expiry.
func (s *RedisStateStore) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.wrapKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStateStore) Delete(ctx context.Context, key string) error {
	return s.client.Unlink(ctx, s.wrapKey(key)).Err()
}

// Close closes the Redis connection.
func (s *RedisStateStore) Close() error {
	return s.client.Close()
}

func (s *RedisStateStore) wrapKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}
