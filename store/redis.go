package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/blesswinsamuel/dht_exporter/poll"
)

const DefaultRedisAddr = "localhost:6379"

// RedisOptions selects the Redis server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// Redis stores each record with SET and no expiry.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects to Redis and checks the connection with PING.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Addr == "" {
		opts.Addr = DefaultRedisAddr
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		Protocol: 2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}
	log.Infof("connected to redis at %s db %d", opts.Addr, opts.DB)
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Publish(ctx context.Context, key string, payload []byte) error {
	if err := r.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	log.Debugf("set %s = %s", key, payload)
	return nil
}

// Latest returns the record currently stored under key.
func (r *Redis) Latest(ctx context.Context, key string) (poll.Record, error) {
	var rec poll.Record
	res, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		return rec, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(res), &rec); err != nil {
		return rec, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
