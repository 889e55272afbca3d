package redis

import (
	"context"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

type cache struct {
	client *redislib.Client
	prefix string
}

// NewCache returns a Redis-backed repository.Cache.
func NewCache(client *redislib.Client) repository.Cache {
	return &cache{client: client, prefix: "greenbite:cache:"}
}

func (c *cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, false, nil
		}
		return nil, false, domain.Unavailable("read cache", err)
	}
	return value, true, nil
}

func (c *cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if ttlSeconds <= 0 {
		ttlSeconds = 60
	}
	if err := c.client.Set(ctx, c.prefix+key, value, time.Duration(ttlSeconds)*time.Second).Err(); err != nil {
		return domain.Unavailable("write cache", err)
	}
	return nil
}
