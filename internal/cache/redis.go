package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a cache stored in a redis database. Reset flushes the whole
// configured database, so it should not be shared with other data.
type Redis struct {
	client  *redis.Client
	timeout time.Duration
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// NewRedis connects to redis and pings it.
func NewRedis(opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})

	r := &Redis{client: client, timeout: opts.Timeout}

	ctx, cancel := r.context()
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, err
	}

	return r, nil
}

func (r *Redis) context() (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(context.Background())
	}

	return context.WithTimeout(context.Background(), r.timeout)
}

// Get implements Cache.
func (r *Redis) Get(key string) ([]byte, bool, error) {
	ctx, cancel := r.context()
	defer cancel()

	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	return val, true, nil
}

// Set implements Cache.
func (r *Redis) Set(key string, val []byte, ttl time.Duration) error {
	ctx, cancel := r.context()
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}

	return r.client.Set(ctx, key, val, ttl).Err()
}

// Delete implements Cache.
func (r *Redis) Delete(key string) (bool, error) {
	ctx, cancel := r.context()
	defer cancel()

	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// Reset implements Cache.
func (r *Redis) Reset() error {
	ctx, cancel := r.context()
	defer cancel()

	return r.client.FlushDB(ctx).Err()
}

// Close implements Cache.
func (r *Redis) Close() error {
	return r.client.Close()
}
