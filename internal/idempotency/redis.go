package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingPrefix = "pending:"

// RedisStore shares idempotency state between replicas. A reservation is a
// SET NX of "pending:<fingerprint>"; completion overwrites it with the JSON
// response.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "swiftremit:idem:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Begin(ctx context.Context, key, fingerprint string, ttl time.Duration) (*Response, bool, error) {
	k := s.prefix + key
	ok, err := s.client.SetNX(ctx, k, pendingPrefix+fingerprint, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("idempotency: reserve key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the caller may retry
		return nil, false, ErrInFlight
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency: load key: %w", err)
	}
	if fp, pending := strings.CutPrefix(raw, pendingPrefix); pending {
		if fp != fingerprint {
			return nil, false, ErrFingerprintMismatch
		}
		return nil, false, ErrInFlight
	}

	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false, fmt.Errorf("idempotency: decode response: %w", err)
	}
	if resp.Fingerprint != fingerprint {
		return nil, false, ErrFingerprintMismatch
	}
	return &resp, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, resp Response, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency: encode response: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: store response: %w", err)
	}
	return nil
}

func (s *RedisStore) Abort(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency: release key: %w", err)
	}
	return nil
}
