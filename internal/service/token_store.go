package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore lưu token đang hiệu lực để hỗ trợ thu hồi khi logout.
type TokenStore interface {
	Put(ctx context.Context, token, username string, ttl time.Duration) error
	Get(ctx context.Context, token string) (username string, found bool, err error)
	Invalidate(ctx context.Context, token string) error
}

const tokenKeyPrefix = "auth:tokens:"

type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

// NewRedisClient kết nối Redis và ping để chắc chắn server sẵn sàng.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("không thể kết nối Redis tại %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisTokenStore) Put(ctx context.Context, token, username string, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKeyPrefix+token, username, ttl).Err()
}

func (s *RedisTokenStore) Get(ctx context.Context, token string) (string, bool, error) {
	username, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return username, true, nil
}

func (s *RedisTokenStore) Invalidate(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKeyPrefix+token).Err()
}
