package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/botkeeper/botkeeper/internal/common"
	"github.com/botkeeper/botkeeper/internal/server/records"
)

// RedisConfig captures connection options for the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// redisAPI is the subset of the redis client used by the store.
type redisAPI interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Close() error
}

// RedisStore keeps the whole collection as one JSON value under a single key.
type RedisStore struct {
	client redisAPI
	key    string
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client, key: cfg.Key}
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client redisAPI, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context) ([]records.User, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			if err := s.client.Set(ctx, s.key, "[]", 0).Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
			}
			return []records.User{}, nil
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var users []records.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", common.ErrCorruptStore, s.key, err)
	}
	if users == nil {
		users = []records.User{}
	}
	return users, nil
}

func (s *RedisStore) Save(ctx context.Context, users []records.User) error {
	if users == nil {
		users = []records.User{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}
