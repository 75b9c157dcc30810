package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"sealbox/engine/library"
)

type redisBackend struct {
	client *redis.Client
	prefix string
}

// newRedisBackend connects to redis at the given URL.
// URL format: redis://[:password@]host:port/db
func newRedisBackend(redisURL string) (*redisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &redisBackend{client: client, prefix: "sealbox:"}, nil
}

func (r *redisBackend) Load(namespace string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, err := r.client.Get(ctx, r.prefix+namespace).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		library.LogCLI(err.Error(), 2)
		return nil, false
	}
	return data, true
}

func (r *redisBackend) Save(namespace string, b []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.client.Set(ctx, r.prefix+namespace, b, 0).Err(); err != nil {
		library.LogCLI(err.Error(), 2)
	}
}
