package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/kuitter-gate/internal/config"
)

const clearBatch = 100

// Redis фабрика хранилищ поверх redis; ключи имеют вид <prefix>:<namespace>:<key>.
type Redis struct {
	Db     *redis.Client
	prefix string
}

// InitServer подключается к redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Redis, error) {
	const op = "kv.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewRedis(db, cfg.KeyPrefix), nil
}

// NewRedis оборачивает готовый клиент.
func NewRedis(db *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "kuitter"
	}
	return &Redis{Db: db, prefix: prefix}
}

// For возвращает хранилище пространства имён namespace.
func (r *Redis) For(namespace string) Store {
	return &redisStore{db: r.Db, prefix: r.prefix + ":" + namespace + ":"}
}

// Ping проверяет соединение с redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.Db.Ping(ctx).Err()
}

// Close закрывает клиент redis.
func (r *Redis) Close() error {
	return r.Db.Close()
}

type redisStore struct {
	db     *redis.Client
	prefix string
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "kv.redis.Get"
	val, err := s.db.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return val, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	const op = "kv.redis.Set"
	if err := s.db.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *redisStore) SetNX(ctx context.Context, key, value string) (bool, error) {
	const op = "kv.redis.SetNX"
	ok, err := s.db.SetNX(ctx, s.prefix+key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	const op = "kv.redis.Delete"
	if err := s.db.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	const op = "kv.redis.Clear"
	iter := s.db.Scan(ctx, 0, s.prefix+"*", clearBatch).Iterator()
	batch := make([]string, 0, clearBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatch {
			if err := s.db.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(batch) > 0 {
		if err := s.db.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}
