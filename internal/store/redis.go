package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wesm/listenview/internal/history"
)

const redisKeyPrefix = "listenview:dataset:"

// Redis keeps compressed tables in an external Redis server.
// Expiry is left to Redis via SET EX.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ Store = (*Redis)(nil)

// OpenRedis connects to rawURL and verifies the server
// answers.
func OpenRedis(
	ctx context.Context, rawURL string, ttl time.Duration,
) (*Redis, error) {
	if rawURL == "" {
		return nil, errors.New("redis store requires a URL")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedis(client, ttl), nil
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Put(
	ctx context.Context, id string, tbl *history.Table,
) error {
	blob, err := encodeTable(tbl)
	if err != nil {
		return err
	}
	if err := r.client.Set(
		ctx, redisKeyPrefix+id, blob, r.ttl,
	).Err(); err != nil {
		return fmt.Errorf("storing dataset %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Get(
	ctx context.Context, id string,
) (*history.Table, error) {
	blob, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		observeGet(BackendRedis, false)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", id, err)
	}
	observeGet(BackendRedis, true)
	return decodeTable(blob)
}

func (r *Redis) Evict(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("evicting dataset %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	storeEvictions.WithLabelValues(BackendRedis).Inc()
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
