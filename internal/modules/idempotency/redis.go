package idempotency

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "idem:"

type redisStore struct{ client *redis.Client }

// NewRedisStore returns a Store with native TTL enforcement. Preferred when a
// Redis address is configured; keys disappear exactly at expiry instead of
// waiting for an opportunistic purge.
func NewRedisStore(client *redis.Client) Store { return &redisStore{client: client} }

func (s *redisStore) Lookup(ctx context.Context, hash string) (json.RawMessage, error) {
	b, err := s.client.Get(ctx, keyPrefix+hash).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *redisStore) Save(ctx context.Context, hash string, response json.RawMessage) error {
	return s.client.Set(ctx, keyPrefix+hash, []byte(response), TTL).Err()
}
