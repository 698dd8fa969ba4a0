package slot

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "tripmark:slot:"

// Redis：以普通字符串键保存槽位，不设置过期
type Redis struct {
	rc *redis.Client
}

func NewRedis(rc *redis.Client) *Redis { return &Redis{rc: rc} }

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rc.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *Redis) Set(ctx context.Context, key string, value []byte) error {
	return s.rc.Set(ctx, redisPrefix+key, value, 0).Err()
}
