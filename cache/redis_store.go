package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis so several API instances share one
// read model. Values are plain string keys with an expiry; each tag is a set
// of the keys carrying it.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore wraps a ready client. keyPrefix defaults to "round:cache:".
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "round:cache:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, r.valueKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	valueKey := r.valueKey(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, valueKey, value, ttl)
		for _, tag := range tags {
			tagKey := r.tagKey(tag)
			pipe.SAdd(ctx, tagKey, valueKey)
			// Tag sets expire with the newest value they index.
			pipe.Expire(ctx, tagKey, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		tagKey := r.tagKey(tag)
		keys, err := r.client.SMembers(ctx, tagKey).Result()
		if err != nil {
			return fmt.Errorf("redis invalidate %s: %w", tag, err)
		}
		if err := r.client.Del(ctx, append(keys, tagKey)...).Err(); err != nil {
			return fmt.Errorf("redis invalidate %s: %w", tag, err)
		}
	}
	return nil
}

func (r *RedisStore) valueKey(key string) string {
	return r.keyPrefix + "v:" + key
}

func (r *RedisStore) tagKey(tag string) string {
	return r.keyPrefix + "t:" + tag
}
