package l402

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStoreConfig configures a RedisStore.
type RedisStoreConfig struct {
	// Client is the Redis client to use. Required. The store does not
	// own the client; closing the store does not close the client.
	Client *redis.Client

	// Prefix namespaces the store's keys. Default "l402:cred:".
	Prefix string

	// TTL applies to credentials stored without an expiry. Default 1h.
	TTL time.Duration
}

// RedisStore is a CredentialStore backed by Redis, letting multiple
// client processes share paid credentials. Expiry is delegated to Redis
// key TTLs, so Sweep is a no-op.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(cfg RedisStoreConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "l402:cred:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCredentialTTL
	}
	return &RedisStore{rdb: cfg.Client, prefix: cfg.Prefix, ttl: cfg.TTL}
}

// Get returns the credential for key. An unavailable backend or a
// corrupt entry degrades to a cache miss.
func (s *RedisStore) Get(ctx context.Context, key string) (*Credential, bool) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, false
	}
	if !time.Now().Before(cred.ExpiresAt) {
		s.rdb.Del(ctx, s.prefix+key)
		return nil, false
	}
	return &cred, true
}

// Set inserts or overwrites the credential for key with a Redis TTL
// matching its expiry. Already-expired credentials are not stored.
func (s *RedisStore) Set(ctx context.Context, key string, cred *Credential) {
	c := *cred
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = time.Now().Add(s.ttl)
	}

	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(&c)
	if err != nil {
		return
	}
	s.rdb.Set(ctx, s.prefix+key, data, ttl)
}

// Invalidate removes the credential for key.
func (s *RedisStore) Invalidate(ctx context.Context, key string) {
	s.rdb.Del(ctx, s.prefix+key)
}

// Sweep is a no-op: Redis evicts expired keys natively.
func (s *RedisStore) Sweep(ctx context.Context) {}

// Close is a no-op; the store does not own its client.
func (s *RedisStore) Close() error {
	return nil
}
