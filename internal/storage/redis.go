package storage

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v7"
	"github.com/hafizbahtiar/console/internal/config"
)

type Redis struct {
	client *redis.Client
	prefix string
}

var _ Storage = (*Redis)(nil)

func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Redis{client: client, prefix: cfg.Prefix}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.WithContext(ctx).Get(r.prefix + key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.WithContext(ctx).Set(r.prefix+key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.WithContext(ctx).Del(r.prefix + key).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
